// Command meshconv converts model files between the supported formats without
// opening a window. It runs the same import and export pipeline as the studio,
// so anything the viewer loads converts here too.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	vec3d "github.com/flywave/go3d/float64/vec3"

	"mesh-studio/internal/asset"
	"mesh-studio/internal/scene"
)

func main() {
	in := flag.String("in", "", "input model file (stl, gltf, glb, 3ds, fbx, dae)")
	out := flag.String("out", "", "output model file (stl, gltf, glb, mst)")
	scale := flag.Float64("scale", 1, "uniform scale baked into the output vertices")
	info := flag.Bool("info", false, "print model details instead of converting")
	flag.Parse()

	if err := run(*in, *out, *scale, *info); err != nil {
		fmt.Fprintln(os.Stderr, "meshconv:", err)
		os.Exit(1)
	}
}

func run(in, out string, scale float64, info bool) error {
	if in == "" {
		return fmt.Errorf("-in is required")
	}
	format, err := asset.Detect(in)
	if err != nil {
		return err
	}
	dec := asset.DecoderFor(format)
	if dec == nil {
		return fmt.Errorf("format %s is export-only", format)
	}
	mesh, bounds, err := dec.Decode(in)
	if err != nil {
		return fmt.Errorf("decode %s: %w", in, err)
	}
	name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	e := scene.NewEntity(name, string(format), in, mesh, *bounds)

	if info {
		printInfo(e)
		if out == "" {
			return nil
		}
	}
	if out == "" {
		return fmt.Errorf("-out is required unless -info is set")
	}

	if scale != 1 {
		t := scene.Identity()
		t.Scale = vec3d.T{scale, scale, scale}
		mat := t.Matrix()
		asset.BakeTransform(mesh, &mat)
	}

	outFormat, err := asset.Detect(out)
	if err != nil {
		return err
	}
	enc := asset.EncoderFor(outFormat)
	if enc == nil {
		return fmt.Errorf("format %s is import-only", outFormat)
	}
	if err := enc.Encode(out, mesh); err != nil {
		return fmt.Errorf("encode %s: %w", out, err)
	}
	fmt.Printf("%s -> %s (%s, %d triangles)\n", in, out, outFormat, e.TriangleCount())
	return nil
}

func printInfo(e *scene.Entity) {
	b := e.Bounds
	fmt.Printf("name:      %s\n", e.Name)
	fmt.Printf("format:    %s\n", e.Format)
	fmt.Printf("triangles: %d\n", e.TriangleCount())
	fmt.Printf("bounds:    min %.3f %.3f %.3f  max %.3f %.3f %.3f\n", b[0], b[1], b[2], b[3], b[4], b[5])
	fmt.Printf("size:      %.3f x %.3f x %.3f\n", b[3]-b[0], b[4]-b[1], b[5]-b[2])
}

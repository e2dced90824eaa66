// Package gltfx reads, edits and writes glTF 2.0 assets.
//
// A Document holds a property graph: accessors, buffers, meshes,
// primitives, nodes, skins, animations, scenes and images are nodes, and
// every reference between them is a Link. Links are tracked from both
// ends, so a property always knows its parents and cannot be disposed
// while one remains.
//
// IO converts between documents and their JSON, GLB or file form.
// Extensions plug into reading and writing through ReadParticipant and
// WriteParticipant; the compression extensions live under ext/ and take
// their codecs as dependencies registered on the IO.
//
// Design policy:
//   - Keep the graph and I/O in the root package; wire types under wire/,
//     extensions under ext/, codecs under codec/, and the CLI under
//     cmd/gltfx.
//   - Errors wrap the sentinels in errors.go; match them with errors.Is.
//   - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	c, _ := refcodec.New()
//	io := gltfx.NewIO().
//		RegisterExtensions(meshopt.Type).
//		RegisterDependencies(map[string]any{
//			codec.MeshoptEncoderKey: c,
//			codec.MeshoptDecoderKey: c,
//		})
//	doc, err := io.Read(ctx, "in.glb")
//	err = doc.Transform(ctx, functions.Meshopt(functions.MeshoptOptions{}))
//	err = io.Write(ctx, "out.glb", doc)
package gltfx

// Package apisnap tracks the public API surface of a library across builds.
// It records what a build publishes, decides whether the change is backward
// compatible, derives the next semantic version, and regenerates the
// dispatcher facade that exposes each declared service.
//
// # Pipeline
//
// Declaration extraction happens outside apisnap. An extractor delivers
// declaration records in one or more passes:
//
//  1. Ingest: records arrive as YAML documents ([Engine.IngestFiles],
//     [Engine.IngestYAML]) or through a Risor conversion script
//     ([Engine.IngestScript]) and are stored in SQLite, grouped by pass.
//
//  2. Build: [Engine.Build] replays the passes into a collector, generates
//     the facade exactly once, adds the generated file as a final source
//     unit, finalizes the snapshot and compares it against the persisted
//     baseline. When nothing is wrong the new snapshot, version, report and
//     source list are written to the output directory.
//
// # Usage
//
//	e, err := apisnap.New("apisnap.db", apisnap.WithConfig(cfg))
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IngestFiles(ctx, 1, "decls.yaml")
//	res, err := e.Build(ctx)
//	fmt.Println(res.Version, res.Compatibility)
//
// # Compatibility
//
// Changes are classified SAME < PATCH < MINOR < MAJOR. Removing anything
// public is MAJOR; adding API is MINOR; a content change that leaves the
// surface alone is PATCH. A version override (MAJOR.MINOR.PATCH or
// SNAPSHOT) skips comparison and is recorded as given.
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] reads the declaration store:
// units per pass, annotated types, extension groups and a summary.
package apisnap

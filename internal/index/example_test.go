// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/partlib/internal/ident"
	"github.com/jeranaias/partlib/internal/index"
)

// Example demonstrates a rescan and a version lookup
func Example() {
	tmpDir, err := os.MkdirTemp("", "partlib-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	createSampleLibrary(tmpDir)

	idx, err := index.Open(index.DefaultConfig(tmpDir))
	if err != nil {
		panic(err)
	}
	defer idx.Close()

	ctx := context.Background()
	count, err := idx.Rescan(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Indexed %d elements\n", count)

	uuid := ident.MustParseUUID("3f2a7c1e-5b4d-4e8f-9a6b-0c1d2e3f4a5b")
	revs, err := idx.Symbols(ctx, uuid)
	if err != nil {
		panic(err)
	}
	for _, rev := range revs {
		fmt.Printf("v%s %s\n", rev.Version, filepath.Base(rev.Path))
	}

	latest, _, err := idx.LatestSymbol(ctx, uuid)
	if err != nil {
		panic(err)
	}
	fmt.Println("Latest:", filepath.Base(latest))

	// Output:
	// Indexed 3 elements
	// v0.9 resistor-old.sym
	// v1 resistor.sym
	// v1.2 resistor-new.sym
	// Latest: resistor-new.sym
}

func createSampleLibrary(dir string) {
	files := map[string]string{
		"sym/resistor.sym": `uuid = "3f2a7c1e-5b4d-4e8f-9a6b-0c1d2e3f4a5b"
version = "1.0"

[name]
en_US = "Resistor"
`,
		"sym/resistor-new.sym": `uuid = "3f2a7c1e-5b4d-4e8f-9a6b-0c1d2e3f4a5b"
version = "1.2"

[name]
en_US = "Resistor"
`,
		"sym/old/resistor-old.sym": `uuid = "3f2a7c1e-5b4d-4e8f-9a6b-0c1d2e3f4a5b"
version = "0.9"

[name]
en_US = "Resistor"
`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			panic(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			panic(err)
		}
	}
}

// Package nostdlog reports imports of the standard "log" package outside
// package main. Library code logs through the structured zap logger.
package nostdlog

import (
	"strconv"
	"strings"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "nostdlog",
	Doc:  "forbids the standard log package outside package main",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() == "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		if strings.HasSuffix(pass.Fset.File(file.Pos()).Name(), "_test.go") {
			continue
		}

		for _, imp := range file.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil || path != "log" {
				continue
			}
			pass.Reportf(imp.Pos(), "import of the standard log package; use the zap logger instead")
		}
	}

	return nil, nil
}

// Command staticlint runs the project's static checks as one multichecker
// binary: a fixed set of x/tools passes, ineffassign, nilerr, the project
// analyzers and a selection of staticcheck analyzers.
//
// The staticcheck selection is read from config.json next to the binary
// when present, and falls back to defaultStaticchecks otherwise.
package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/4slk4/simple-note-taking/cmd/staticlint/noosexit"
	"github.com/4slk4/simple-note-taking/cmd/staticlint/nostdlog"
)

const configFileName = `config.json`

// ConfigData lists staticcheck analyzers by name or prefix, e.g. "SA1000" or "SA4".
type ConfigData struct {
	Staticcheck []string `json:"staticcheck"`
}

var defaultStaticchecks = []string{"SA1", "SA2", "SA4", "SA5", "SA6", "SA9"}

func loadConfig() (ConfigData, error) {
	cfg := ConfigData{Staticcheck: defaultStaticchecks}

	appfile, err := os.Executable()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), configFileName))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func selected(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.HasPrefix(name, pattern) {
			return true
		}
	}

	return false
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	checks := []*analysis.Analyzer{
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
		nostdlog.Analyzer,
	}

	for _, v := range staticcheck.Analyzers {
		if selected(v.Analyzer.Name, cfg.Staticcheck) {
			checks = append(checks, v.Analyzer)
		}
	}

	multichecker.Main(checks...)
}

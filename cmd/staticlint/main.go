// Command staticlint bundles the analyzers contactbook is checked with into a
// single multichecker binary. The nohttperror rule keeps error bodies flowing
// through router.WriteError. Staticcheck rules are opt-in and read from
// config.json next to the binary.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

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

	"github.com/patric-chuzhbe/contactbook/cmd/staticlint/nohttperror"
)

const configFileName = "config.json"

type lintConfig struct {
	Staticcheck []string `json:"staticcheck"`
}

func main() {
	executable, err := os.Executable()
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := loadConfig(filepath.Join(filepath.Dir(executable), configFileName))
	if err != nil {
		log.Fatal(err)
	}

	multichecker.Main(analyzers(cfg)...)
}

func loadConfig(path string) (lintConfig, error) {
	var cfg lintConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `os.ReadFile()` calling: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `json.Unmarshal()` calling: %w", err)
	}

	return cfg, nil
}

// analyzers always includes the vet passes and the project rules. Unknown
// staticcheck names in cfg are ignored.
func analyzers(cfg lintConfig) []*analysis.Analyzer {
	suite := []*analysis.Analyzer{
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
		nohttperror.Analyzer,
	}

	enabled := make(map[string]struct{}, len(cfg.Staticcheck))
	for _, name := range cfg.Staticcheck {
		enabled[name] = struct{}{}
	}
	for _, check := range staticcheck.Analyzers {
		if _, ok := enabled[check.Analyzer.Name]; ok {
			suite = append(suite, check.Analyzer)
		}
	}

	return suite
}

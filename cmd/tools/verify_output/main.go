// Command verify_output checks a written extraction JSON file against the
// published figures in the expectations file.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"univ_financials/pkg/core/jpnum"
	"univ_financials/pkg/core/verify"

	"github.com/spf13/pflag"
)

func main() {
	expectationsPath := pflag.String("expectations", verify.DefaultExpectationsPath, "Expectations YAML")
	asJSON := pflag.Bool("json", false, "Print results as JSON")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: verify_output [options] output.json\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}

	expectations, err := verify.LoadExpectations(*expectationsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(pflag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	results, err := verify.VerifyJSON(raw, expectations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		_ = enc.Encode(results)
	} else {
		for _, r := range results {
			status := "OK  "
			if !r.Passed {
				status = "FAIL"
			}
			actual := "-"
			if r.Actual != nil {
				actual = jpnum.FormatJapaneseNumber(*r.Actual, true)
			}
			fmt.Printf("[%s] %-32s expected %15s  actual %15s", status, r.Name, jpnum.FormatJapaneseNumber(r.Expected, true), actual)
			if r.Error != "" {
				fmt.Printf("  (%s)", r.Error)
			}
			fmt.Println()
		}
	}

	if !verify.AllPassed(results) {
		os.Exit(1)
	}
}

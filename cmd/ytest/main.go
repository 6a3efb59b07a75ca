package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/yolc/pkg/compiler"
	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/diag"
	"tlog.app/go/tlog"
)

type FileTestResult struct {
	File     string        `json:"file"`
	Status   string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Hash     string        `json:"hash,omitempty"`
	Duration time.Duration `json:"duration"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	testFiles  = flag.String("test-files", "tests/*.y", "Glob pattern(s) for files to test (space-separated).")
	skipFiles  = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	jobs       = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose    = flag.Bool("v", false, "Enable verbose logging.")
	useCache   = flag.Bool("cached", false, "Skip files whose source and golden file are unchanged since they last passed.")
	generate   = flag.Bool("generate", false, "Write the current output of every file to its golden file.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *jobs < 1 {
		*jobs = 1
	}

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	ctx := context.Background()
	if *verbose {
		ctx = tlog.ContextWithSpan(ctx, tlog.Root())
	}

	if *generate {
		handleGenerateGolden(ctx, files)
		return
	}

	handleRunTestSuite(ctx, files)
}

func goldenPath(sourceFile string) string { return sourceFile + ".golden" }

// render is what a golden file holds: the program dump, or the error it fails with.
func render(ctx context.Context, file string, src []byte) string {
	res, err := compiler.CompileSource(ctx, file, src, config.NewConfig())
	if err != nil {
		if e, ok := diag.As(err); ok {
			return fmt.Sprintf("# error %v: %v\n", e.Kind, e)
		}
		return fmt.Sprintf("# error: %v\n", err)
	}
	return res.Program.Dump()
}

// hashPair identifies a source file together with its expected output.
func hashPair(src, golden []byte) string {
	h := xxhash.New()
	_, _ = h.Write(src)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(golden)
	return fmt.Sprintf("%x", h.Sum64())
}

func handleGenerateGolden(ctx context.Context, files []string) {
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("%s[ERROR]%s Could not read %s: %v\n", cRed, cNone, file, err)
		}
		if err := os.WriteFile(goldenPath(file), []byte(render(ctx, file, src)), 0644); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to write golden file for %s: %v\n", cRed, cNone, file, err)
		}
		log.Printf("%s[SUCCESS]%s Golden file written for %s\n", cGreen, cNone, file)
	}
}

func handleRunTestSuite(ctx context.Context, files []string) {
	previousResults := make(TestSuiteResults)
	if prevData, err := os.ReadFile(*outputJSON); err == nil {
		if json.Unmarshal(prevData, &previousResults) != nil {
			log.Printf("%s[WARN]%s Could not parse previous results file %s. Cache will not be used.\n", cYellow, cNone, *outputJSON)
			previousResults = make(TestSuiteResults)
		}
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(ctx, file, previousResults[file])
			}
		}()
	}

	for _, file := range files {
		if skipList[file] || skipList[filepath.Base(file)] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}

	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})

	printSummary(allResults)
	resultsMap := writeJSONReport(allResults)

	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func testFile(ctx context.Context, file string, previous *FileTestResult) *FileTestResult {
	src, err := os.ReadFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read source file: %v", err)}
	}
	golden, err := os.ReadFile(goldenPath(file))
	if err != nil {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .golden file"}
	}

	hash := hashPair(src, golden)
	if *useCache && previous != nil && previous.Status == "PASS" && previous.Hash == hash {
		return &FileTestResult{File: file, Status: "PASS", Message: "Unchanged since the last passing run (cached)", Hash: hash}
	}

	start := time.Now()
	got := render(ctx, file, src)
	took := time.Since(start)

	// The pipeline must not depend on map order: a second run has to match the first.
	if again := render(ctx, file, src); again != got {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output differs between two runs", Diff: cmp.Diff(got, again), Duration: took}
	}

	if diff := cmp.Diff(string(golden), got); diff != "" {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output does not match the golden file", Diff: diff, Duration: took}
	}

	return &FileTestResult{File: file, Status: "PASS", Message: "Output matches the golden file", Hash: hash, Duration: took}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var total time.Duration

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s", cGreen, cNone, result.Message)
			if *verbose && result.Duration > 0 {
				fmt.Printf(" [%s]", formatDuration(result.Duration))
			}
			fmt.Println()
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
		total += result.Duration
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total (%s compiling)\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results), formatDuration(total))
}

func formatDiff(diff string) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			sb.WriteString(fmt.Sprintf("    %s%s%s\n", cRed, line, cNone))
		case strings.HasPrefix(trimmed, "+"):
			sb.WriteString(fmt.Sprintf("    %s%s%s\n", cGreen, line, cNone))
		default:
			sb.WriteString("    " + line + "\n")
		}
	}
	return sb.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	if err := os.WriteFile(*outputJSON, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, *outputJSON, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", *outputJSON)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			if seen[file] {
				continue
			}
			if info, err := os.Stat(file); err == nil && info.Mode().IsRegular() {
				allFiles = append(allFiles, file)
				seen[file] = true
			}
		}
	}
	sort.Strings(allFiles)
	return allFiles, nil
}

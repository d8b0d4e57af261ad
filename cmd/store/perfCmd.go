package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/homenode/distrilock/cmd/util"
	"github.com/homenode/distrilock/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for distrilock servers",
		Long:    "Runs benchmarks against a cache store. Every benchmark uses its own keys and deletes them afterwards.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix     = "__test"
	perfLargeValueKB  = 60
	perfNumThreads    = 10
	perfKeySpread     = 100
	perfExpirySeconds = int32(60)
	perfSkip          = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines per CPU to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 60, util.WrapString("How large the value for the set-large test should be (in KB, at most 63)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueKB = viper.GetInt("large-value-size")
	perfKeySpread = max(1, viper.GetInt("keys"))
	perfNumThreads = max(1, viper.GetInt("threads"))
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfLargeValueKB*1024 > common.MaxPayloadSize {
		return fmt.Errorf("large-value-size must be at most %d KB", common.MaxPayloadSize/1024)
	}
	return nil
}

// benchmark describes one benchmark: prepare runs before the timer starts,
// op is executed in parallel with a per goroutine counter
type benchmark struct {
	name    string
	prepare bool
	op      func(ctx context.Context, key string, counter int) error
}

func run(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	expiry := &perfExpirySeconds
	largeValue := make([]byte, perfLargeValueKB*1024)

	fmt.Println("Performance testing tool for distrilock servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Large value: %s\n", humanize.IBytes(uint64(len(largeValue))))
	fmt.Println()

	fmt.Println("starting tests...")

	benchmarks := []benchmark{
		{name: "set", op: func(ctx context.Context, key string, _ int) error {
			_, _, err := rpcStore.Set(ctx, key, expiry, []byte("test"))
			return err
		}},
		{name: "set-large", op: func(ctx context.Context, key string, _ int) error {
			_, _, err := rpcStore.Set(ctx, key, expiry, largeValue)
			return err
		}},
		{name: "get", prepare: true, op: func(ctx context.Context, key string, _ int) error {
			_, _, err := rpcStore.Get(ctx, key)
			return err
		}},
		{name: "get-missing", op: func(ctx context.Context, key string, _ int) error {
			_, _, err := rpcStore.Get(ctx, key)
			return err
		}},
		{name: "update", prepare: true, op: func(ctx context.Context, key string, _ int) error {
			_, _, err := rpcStore.Update(ctx, key, common.ExpireIn(0), []byte("updated"))
			return err
		}},
		{name: "delete", prepare: true, op: func(ctx context.Context, key string, _ int) error {
			_, _, err := rpcStore.Delete(ctx, key)
			return err
		}},
		{name: "keys", prepare: true, op: func(ctx context.Context, _ string, _ int) error {
			_, _, err := rpcStore.Keys(ctx, "0..10")
			return err
		}},
		{name: "mixed", prepare: true, op: func(ctx context.Context, key string, counter int) error {
			var err error
			switch counter % 4 {
			case 0: // set
				_, _, err = rpcStore.Set(ctx, key, expiry, []byte("test"))
			case 1: // get
				_, _, err = rpcStore.Get(ctx, key)
			case 2: // update
				_, _, err = rpcStore.Update(ctx, key, expiry, nil)
			case 3: // size
				_, _, err = rpcStore.Size(ctx)
			}
			return err
		}},
	}

	// Create results map
	results := make(map[string]testing.BenchmarkResult)
	for _, bm := range benchmarks {
		if shouldSkip(bm.name) {
			results[bm.name] = testing.BenchmarkResult{}
			printResult(bm.name, testing.BenchmarkResult{})
			continue
		}
		result := runBenchmark(ctx, bm)
		results[bm.name] = result
		printResult(bm.name, result)
	}

	printTransportStats(rpcTransport.Metrics())

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func runBenchmark(ctx context.Context, bm benchmark) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		// prepare keys
		getKey, iter := getKeys(bm.name)

		if bm.prepare {
			iter(func(k string) {
				if _, _, err := rpcStore.Set(ctx, k, &perfExpirySeconds, []byte("test")); err != nil {
					log.Printf("(%s) - error setting key: %v\n", bm.name, err)
				}
			})
		}

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if _, _, err := rpcStore.Delete(ctx, k); err != nil {
					log.Printf("(%s) - error deleting key: %v\n", bm.name, err)
				}
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := bm.op(ctx, getKey(counter), counter); err != nil {
					log.Printf("(%s) - error: %v\n", bm.name, err)
				}
				counter++
			}
		})
	})
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	return slices.Contains(perfSkip, test)
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%s ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), humanize.Comma(int64(opsPerSec)))
}

// printTransportStats prints the latency distribution measured by the transport
func printTransportStats(registry gometrics.Registry) {
	timer, ok := registry.Get("requests").(gometrics.Timer)
	if !ok {
		return
	}
	snapshot := timer.Snapshot()
	ps := snapshot.Percentiles([]float64{0.5, 0.99, 0.999})

	fmt.Println()
	fmt.Printf("Requests: %s (%.0f/s)\n", humanize.Comma(snapshot.Count()), snapshot.RateMean())
	fmt.Printf("Latency:  p50=%s p99=%s p99.9=%s max=%s\n",
		time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]), time.Duration(snapshot.Max()))

	if errors, ok := registry.Get("errors").(gometrics.Meter); ok {
		fmt.Printf("Errors:   %s\n", humanize.Comma(errors.Snapshot().Count()))
	}
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoint", "TimeoutSec", "Index", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			strconv.FormatUint(util.GetIndex(), 10),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}

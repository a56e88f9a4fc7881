package ct

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/goporto/cmd/util"
	"github.com/ValentinKolb/goporto/rpc/client"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/transport/unix"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the daemon",
		Long:    "Runs parallel benchmarks against the daemon. Every benchmark goroutine uses its own connection because a connection serializes its calls.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfPrefix     = "goporto-perf"
	perfNumThreads = 4
	perfSpread     = 16
	perfSkip       = make([]string, 0)

	// latencies of single calls, one timer per benchmark
	perfRegistry = gometrics.NewRegistry()
)

// perfTest is one benchmark: setup prepares the daemon, op runs one call of
// goroutine worker on container name
type perfTest struct {
	name    string
	setup   func(names []string) error
	op      func(c *client.Connection, name string, worker, i int) error
	cleanup func(names []string)
}

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. create,list)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 4, util.WrapString("Number of connections used in parallel"))
	key = "containers"
	perfTestCmd.Flags().Int(key, 16, util.WrapString("How many different containers to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfNumThreads = viper.GetInt("threads")
	perfSpread = max(viper.GetInt("containers"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for the container daemon")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	if _, _, err := conn.Version(); err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)
	for _, test := range perfTests() {
		result := runPerfTest(test)
		results[test.name] = result
		printResult(test.name, result)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}
	return nil
}

func perfTests() []perfTest {
	createAll := func(names []string) error {
		for _, name := range names {
			if _, err := conn.Create(name); err != nil {
				return err
			}
		}
		return nil
	}
	destroyAll := func(names []string) {
		for _, name := range names {
			if err := conn.Destroy(name); err != nil && common.CodeOf(err) != common.ContainerDoesNotExist {
				util.Logger.Warningf("(perf) - error destroying %s: %v", name, err)
			}
		}
	}

	return []perfTest{
		{
			name:  "version",
			setup: func([]string) error { return nil },
			op: func(c *client.Connection, _ string, _, _ int) error {
				_, _, err := c.Version()
				return err
			},
			cleanup: func([]string) {},
		},
		{
			name:    "get",
			setup:   createAll,
			op:      func(c *client.Connection, name string, _, _ int) error { _, err := c.GetProperty(name, "state"); return err },
			cleanup: destroyAll,
		},
		{
			name:    "set",
			setup:   createAll,
			op:      func(c *client.Connection, name string, _, i int) error { return c.SetProperty(name, "private", strconv.Itoa(i)) },
			cleanup: destroyAll,
		},
		{
			name:  "get-batch",
			setup: createAll,
			op: func(c *client.Connection, name string, _, _ int) error {
				_, err := c.Get([]string{name}, []string{"state", "private", "command"})
				return err
			},
			cleanup: destroyAll,
		},
		{
			name:    "list",
			setup:   createAll,
			op:      func(c *client.Connection, _ string, _, _ int) error { _, err := c.List(perfPrefix + "-list-*"); return err },
			cleanup: destroyAll,
		},
		{
			name:  "create",
			setup: func([]string) error { return nil },
			op: func(c *client.Connection, _ string, worker, i int) error {
				name := fmt.Sprintf("%s-create-w%d-%d", perfPrefix, worker, i)
				if _, err := c.Create(name); err != nil {
					return err
				}
				return c.Destroy(name)
			},
			cleanup: func([]string) {},
		},
	}
}

// runPerfTest runs one benchmark with one connection per goroutine
func runPerfTest(test perfTest) testing.BenchmarkResult {
	timer := gometrics.GetOrRegisterTimer(test.name, perfRegistry)
	failures := gometrics.GetOrRegisterCounter(test.name+".errors", perfRegistry)

	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test.name) {
			return
		}

		names := perfNames(test.name)
		if err := test.setup(names); err != nil {
			util.Logger.Errorf("(%s) - setup failed: %v", test.name, err)
			test.cleanup(names)
			return
		}
		b.Cleanup(func() { test.cleanup(names) })

		var worker atomic.Int64
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			id := int(worker.Add(1))
			c, err := newPerfConnection()
			if err != nil {
				util.Logger.Errorf("(%s) - connect failed: %v", test.name, err)
				return
			}
			defer func() { _ = c.Disconnect() }()

			counter := 0
			for pb.Next() {
				name := names[(id+counter)%len(names)]
				start := time.Now()
				if err := test.op(c, name, id, counter); err != nil {
					failures.Inc(1)
					util.Logger.Debugf("(%s) - error: %v", test.name, err)
				}
				timer.UpdateSince(start)
				counter++
			}
		})
	})
}

// newPerfConnection opens an extra connection with the configuration of the command
func newPerfConnection() (*client.Connection, error) {
	s, err := util.GetSerializer()
	if err != nil {
		return nil, err
	}
	c := client.NewConnection(*util.GetClientConfig(), unix.NewUnixClientTransport(), s, nil)
	return c, c.Connect()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// perfNames returns the container names a benchmark works on
func perfNames(test string) []string {
	names := make([]string, perfSpread)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%s-%d", perfPrefix, test, i)
	}
	return names
}

// printResult prints the result of a benchmark test together with its latency percentiles
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
	if timer, ok := perfRegistry.Get(test).(gometrics.Timer); ok {
		ps := timer.Percentiles([]float64{0.5, 0.99})
		fmt.Printf("\tp50=%s p99=%s", time.Duration(ps[0]), time.Duration(ps[1]))
	}
	if errs, ok := perfRegistry.Get(test + ".errors").(gometrics.Counter); ok && errs.Count() > 0 {
		fmt.Printf("\terrors=%d", errs.Count())
	}
	fmt.Println()
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50", "P99", "Errors", "Skipped",
		"Socket", "TimeoutSec", "Serializer", "Threads", "Containers",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	config := util.GetClientConfig()
	for test, result := range results {
		var nsPerOp, opsPerSec float64
		var p50, p99 time.Duration
		var errs int64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
			if timer, ok := perfRegistry.Get(test).(gometrics.Timer); ok {
				ps := timer.Percentiles([]float64{0.5, 0.99})
				p50, p99 = time.Duration(ps[0]), time.Duration(ps[1])
			}
			if counter, ok := perfRegistry.Get(test + ".errors").(gometrics.Counter); ok {
				errs = counter.Count()
			}
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			p50.String(),
			p99.String(),
			strconv.FormatInt(errs, 10),
			skipped,
			config.SocketPath,
			strconv.Itoa(config.TimeoutSecond),
			viper.GetString("serializer"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfSpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}

// Command ncinfo prints the structure of ERA5-style NetCDF extracts:
// variables with their shapes and packing attributes, the decoded time
// range and grid, and the wind component heights the assessment
// pipeline would use. With -merge it also verifies that all files
// merge into one dataset and reports per-variable missing samples.
//
// Usage:
//
//	go run ./cmd/ncinfo era5-2020-01.nc era5-2020-02.nc
//	go run ./cmd/ncinfo -merge era5-2020-01.nc era5-2020-02.nc.gz
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/cdf"

	"github.com/tailvane/windresource/internal/adapter/netcdf"
	"github.com/tailvane/windresource/internal/domain"
)

func main() {
	merge := flag.Bool("merge", false, "verify that all files merge into one dataset")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := describe(path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}

	if *merge && !failed {
		if err := describeMerged(flag.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "merge: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func describe(path string) error {
	nc, cleanup, err := netcdf.Open(path)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println(path)
	if conv, ok := attrString(nc, "", "Conventions"); ok {
		fmt.Printf("  conventions: %s\n", conv)
	}
	if hist, ok := attrString(nc, "", "history"); ok {
		fmt.Printf("  history: %s\n", hist)
	}

	fmt.Println("  variables:")
	for _, v := range nc.Header.Variables() {
		describeVariable(nc, v)
	}

	ds, err := quietReader().ReadDataset(context.Background(), []string{path})
	if err != nil {
		return err
	}
	printDataset("  ", ds)
	fmt.Println()
	return nil
}

func describeVariable(nc *cdf.File, name string) {
	dims := nc.Header.Lengths(name)
	dtype := strings.TrimPrefix(fmt.Sprintf("%T", nc.Reader(name, nil, nil).Zero(1)), "[]")

	line := fmt.Sprintf("    %-10s %-8s %v", name, dtype, dims)
	if units, ok := attrString(nc, name, "units"); ok {
		line += "  units=" + strconv.Quote(units)
	}
	if long, ok := attrString(nc, name, "long_name"); ok {
		line += "  " + strconv.Quote(long)
	}
	if nc.Header.GetAttribute(name, "scale_factor") != nil {
		line += "  packed"
	}
	fmt.Println(line)
}

func describeMerged(paths []string) error {
	ds, err := quietReader().ReadDataset(context.Background(), paths)
	if err != nil {
		return err
	}
	fmt.Printf("merged dataset (%d files)\n", len(paths))
	printDataset("  ", ds)
	for _, name := range ds.VariableNames() {
		f := ds.Fields[name]
		missing := 0
		for _, v := range f.Values {
			if math.IsNaN(v) {
				missing++
			}
		}
		fmt.Printf("  %-6s missing %.2f%% of %d samples\n", name,
			100*float64(missing)/float64(len(f.Values)), len(f.Values))
	}
	return nil
}

func printDataset(indent string, ds *domain.Dataset) {
	if first, last, ok := ds.TimeSpan(); ok {
		fmt.Printf("%stime: %d steps, %s .. %s\n", indent, ds.Steps(),
			first.Format(time.RFC3339), last.Format(time.RFC3339))
	}
	for _, f := range ds.Fields {
		fmt.Printf("%sgrid: %dx%d, lat %g .. %g, lon %g .. %g\n", indent,
			len(f.Lats), len(f.Lons),
			f.Lats[0], f.Lats[len(f.Lats)-1], f.Lons[0], f.Lons[len(f.Lons)-1])
		break
	}
	fmt.Printf("%swind components: %s (heights %s m)\n", indent,
		strings.Join(ds.VariableNames(), " "), joinFloats(ds.Heights()))
}

func quietReader() *netcdf.Reader {
	return netcdf.NewReader(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func attrString(nc *cdf.File, v, name string) (string, bool) {
	s, ok := nc.Header.GetAttribute(v, name).(string)
	return s, ok
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ", ")
}

package harness

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Plan overrides run options per group or per benchmark name.
//
//	<benchmark-suite name="quick">
//	  <benchmark name="add" warmup="500ms" samples="20"/>
//	  <benchmark name="reverse: wasmtime" measurement="10s"/>
//	</benchmark-suite>
type Plan struct {
	Name    string
	Path    string
	Entries []PlanEntry
}

// PlanEntry is one <benchmark> element. Zero fields keep the base option.
type PlanEntry struct {
	Name            string // group or full benchmark name
	WarmUp          time.Duration
	Samples         int
	MeasurementTime time.Duration
}

// OptionsFor returns base with the entries matching b applied. Group entries
// apply first, so an entry naming the benchmark itself wins.
func (p *Plan) OptionsFor(b Benchmark, base Options) Options {
	opts := base
	for _, e := range p.Entries {
		if e.Name == b.Group && e.Name != b.Name {
			opts = e.apply(opts)
		}
	}
	for _, e := range p.Entries {
		if e.Name == b.Name {
			opts = e.apply(opts)
		}
	}
	return opts
}

func (e PlanEntry) apply(o Options) Options {
	if e.WarmUp > 0 {
		o.WarmUp = e.WarmUp
	}
	if e.Samples > 0 {
		o.Samples = e.Samples
	}
	if e.MeasurementTime > 0 {
		o.MeasurementTime = e.MeasurementTime
	}
	return o
}

// LoadPlans parses every plan under paths and merges them in order.
func LoadPlans(paths []string) (*Plan, error) {
	files, err := CollectPlanFiles(paths)
	if err != nil {
		return nil, err
	}
	merged := &Plan{}
	for _, path := range files {
		p, err := ParsePlanFile(path)
		if err != nil {
			return nil, err
		}
		if merged.Name == "" {
			merged.Name, merged.Path = p.Name, p.Path
		}
		merged.Entries = append(merged.Entries, p.Entries...)
	}
	return merged, nil
}

// ParsePlanFile parses a benchmark plan from the given file path.
func ParsePlanFile(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParsePlan(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	if p.Name == "" {
		base := filepath.Base(path)
		p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return p, nil
}

// ParsePlan parses a benchmark plan from the given reader.
func ParsePlan(r io.Reader) (*Plan, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	p := &Plan{}
	var walkErr error
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if walkErr != nil {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "benchmark-suite":
				if name, ok := attr(n, "name"); ok {
					p.Name = name
				}
			case "benchmark":
				e, err := parseEntry(n)
				if err != nil {
					walkErr = err
					return
				}
				p.Entries = append(p.Entries, e)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if walkErr != nil {
		return nil, walkErr
	}
	return p, nil
}

// parseEntry extracts a PlanEntry from a benchmark element.
func parseEntry(n *html.Node) (PlanEntry, error) {
	var e PlanEntry
	for _, a := range n.Attr {
		var err error
		switch a.Key {
		case "name":
			e.Name = strings.TrimSpace(a.Val)
		case "warmup":
			e.WarmUp, err = time.ParseDuration(a.Val)
		case "measurement":
			e.MeasurementTime, err = time.ParseDuration(a.Val)
		case "samples":
			e.Samples, err = strconv.Atoi(a.Val)
			if err == nil && e.Samples < 1 {
				err = fmt.Errorf("must be positive")
			}
		}
		if err != nil {
			return e, fmt.Errorf("benchmark %q: attribute %s=%q: %w", e.Name, a.Key, a.Val, err)
		}
	}
	if e.Name == "" {
		return e, fmt.Errorf("benchmark element without name")
	}
	return e, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

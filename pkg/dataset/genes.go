package dataset

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/emirpasic/gods/sets/treeset"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// ReadGeneListFile reads a gene list file: one gene per line, first tab-separated column.
// Blank lines are skipped and duplicates removed.
func ReadGeneListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeIO, err, "open gene list %s", path)
	}
	defer f.Close()
	return ReadGeneList(f)
}

// ReadGeneList parses a gene list from r. See [ReadGeneListFile].
func ReadGeneList(r io.Reader) ([]string, error) {
	var genes []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		first, _, _ := strings.Cut(line, "\t")
		first = strings.TrimSpace(first)
		if first == "" {
			continue
		}
		if err := errs.ValidateGeneName(first); err != nil {
			return nil, err
		}
		genes = append(genes, first)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeIO, err, "read gene list")
	}
	return NormalizeGenes(genes), nil
}

// NormalizeGenes deduplicates a gene request and returns it sorted.
// A requested gene list is a set: order and repetition carry no meaning.
func NormalizeGenes(genes []string) []string {
	if len(genes) == 0 {
		return nil
	}
	set := treeset.NewWithStringComparator()
	for _, g := range genes {
		if g = strings.TrimSpace(g); g != "" {
			set.Add(g)
		}
	}
	out := make([]string, 0, set.Size())
	for _, v := range set.Values() {
		out = append(out, v.(string))
	}
	return out
}

func sortedStrings(in []string) []string {
	set := treeset.NewWithStringComparator()
	for _, s := range in {
		set.Add(s)
	}
	out := make([]string, 0, set.Size())
	for _, v := range set.Values() {
		out = append(out, v.(string))
	}
	return out
}

// Kmerindex builds and queries k-mer count indexes from FASTA input.
//
// Usage:
//
//	kmerindex build -k 31 -o reads.kmx [-canonical=false] [-min-count 2] [-workers 8] reads.fa.gz ...
//	kmerindex query -i reads.kmx GATTACA...
//	kmerindex stats -i reads.kmx
//	kmerindex verify -i reads.kmx
//	kmerindex dump -i reads.kmx
//
// Input files may be gzipped; "-" reads stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	kmererrors "github.com/tamirms/kmerhash/errors"
	"github.com/tamirms/kmerhash/index"
	"github.com/tamirms/kmerhash/internal/fasta"
)

const usage = `usage: kmerindex <command> [flags] [args]

commands:
  build   count the k-mers of FASTA files into an index
  query   print the count of each k-mer argument
  stats   print index statistics
  verify  check index checksums
  dump    print every hash and count
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "build":
		err = runBuild(ctx, args)
	case "query":
		err = runQuery(args)
	case "stats":
		err = runStats(args)
	case "verify":
		err = runVerify(args)
	case "dump":
		err = runDump(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "kmerindex %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func runBuild(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	k := fs.Int("k", 31, "k-mer length")
	out := fs.String("o", "", "output index path (required)")
	canonical := fs.Bool("canonical", true, "count k-mers and their reverse complements together")
	minCount := fs.Uint("min-count", 1, "drop k-mers seen fewer times")
	workers := fs.Int("workers", 1, "number of counting workers")
	countSize := fs.Int("count-size", 4, "bytes per stored count (1..8)")
	keysPerBlock := fs.Int("keys-per-block", 256, "k-mers per RAM index block")
	cmBits := fs.Uint("cm-bits", 0, "count-min filter width bits (0 disables)")
	cmHeight := fs.Int("cm-height", 4, "count-min filter rows")
	meta := fs.String("meta", "", "user metadata stored in the index")
	_ = fs.Parse(args)

	if *out == "" || fs.NArg() == 0 {
		fs.Usage()
		return errors.New("need -o and at least one input")
	}
	if uint64(*minCount) > math.MaxUint32 {
		return fmt.Errorf("-min-count %d exceeds %d", *minCount, uint32(math.MaxUint32))
	}

	opts := []index.BuildOption{
		index.WithCanonical(*canonical),
		index.WithMinCount(uint32(*minCount)),
		index.WithWorkers(*workers),
		index.WithCountSize(*countSize),
		index.WithKeysPerBlock(*keysPerBlock),
	}
	if *cmBits > 0 {
		opts = append(opts, index.WithCountMinFilter(*cmBits, *cmHeight))
	}
	if *meta != "" {
		opts = append(opts, index.WithUserMetadata([]byte(*meta)))
	}

	start := time.Now()
	builder, err := index.NewBuilder(ctx, *out, *k, opts...)
	if err != nil {
		return err
	}
	defer builder.Close() // Clean up on error

	var records, bases int
	for _, path := range fs.Args() {
		err := fasta.StreamPath(ctx, path, func(r fasta.Record) error {
			records++
			bases += len(r.Seq)
			return builder.AddSequence(r.Seq)
		})
		if err != nil {
			return err
		}
	}
	if err := builder.Finish(); err != nil {
		return err
	}

	st, err := index.GetStats(*out)
	if err != nil {
		return err
	}
	fmt.Printf("%d records, %d bases, %d k-mers, %d distinct stored in %s (%.2fs)\n",
		records, bases, st.TotalKmers, st.NumKeys, *out, time.Since(start).Seconds())
	return nil
}

// openFlag parses the shared -i flag and opens the index.
func openFlag(name string, args []string) (*index.Index, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	path := fs.String("i", "", "index path (required)")
	_ = fs.Parse(args)
	if *path == "" {
		fs.Usage()
		return nil, nil, errors.New("need -i")
	}
	idx, err := index.Open(*path)
	if err != nil {
		return nil, nil, err
	}
	return idx, fs, nil
}

func runQuery(args []string) error {
	idx, fs, err := openFlag("query", args)
	if err != nil {
		return err
	}
	defer idx.Close()

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, kmer := range fs.Args() {
		n, err := idx.CountKmer([]byte(kmer))
		if errors.Is(err, kmererrors.ErrNotFound) {
			n, err = 0, nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", kmer, err)
		}
		fmt.Fprintf(w, "%s\t%d\n", kmer, n)
	}
	return nil
}

func runStats(args []string) error {
	idx, _, err := openFlag("stats", args)
	if err != nil {
		return err
	}
	defer idx.Close()

	st := idx.Stats()
	fmt.Printf("k:            %d\n", st.K)
	fmt.Printf("canonical:    %v\n", st.Canonical)
	fmt.Printf("approximate:  %v\n", st.Approximate)
	fmt.Printf("min count:    %d\n", st.MinCount)
	fmt.Printf("count size:   %d bytes\n", st.CountSize)
	fmt.Printf("k-mers seen:  %d\n", st.TotalKmers)
	fmt.Printf("distinct:     %d\n", st.NumKeys)
	fmt.Printf("blocks:       %d\n", st.NumBlocks)
	fmt.Printf("size:         %d bytes (%.2f bits/k-mer)\n", st.IndexSize, st.BitsPerKey)
	fmt.Printf("input digest: %016x\n", idx.InputDigest())
	if meta := idx.UserMetadata(); len(meta) > 0 {
		fmt.Printf("metadata:     %q\n", meta)
	}
	return nil
}

func runVerify(args []string) error {
	idx, _, err := openFlag("verify", args)
	if err != nil {
		return err
	}
	defer idx.Close()
	if err := idx.Verify(); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

func runDump(args []string) error {
	idx, _, err := openFlag("dump", args)
	if err != nil {
		return err
	}
	defer idx.Close()

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for h, n := range idx.All() {
		fmt.Fprintf(w, "%016x\t%d\n", h, n)
	}
	return nil
}

// Package kmerhash implements ntHash, a rolling hash for k-mers of DNA
// sequences, with O(1) work per base after the first window.
//
// The hash of a k-mer is the XOR of per-base 64-bit seeds, each rotated
// left by its distance from the right end of the window. Sliding the
// window one base to the right rotates every term by one, so the leaving
// base is cancelled and the entering base added with two XORs. In
// canonical mode the hash of the reverse complement is maintained in
// parallel and the smaller of the two is reported, so a k-mer and its
// reverse complement hash identically.
//
// # Basic Usage
//
// Hashing every k-mer of a sequence:
//
//	for offset, h := range kmerhash.Hashes(seq, 31, kmerhash.WithCanonical(true)) {
//	    fmt.Printf("%d\t%016x\n", offset, h)
//	}
//
// Driving the state machine directly on pre-encoded bases:
//
//	h := kmerhash.New(codes[:k], true)
//	for i := k; i < len(codes); i++ {
//	    h.Roll(codes[i-k], codes[i])
//	    use(h.Hash(), h.Extra(1), h.Extra(2))
//	}
//
// # Compatibility
//
// The seed tables, the rotation schedule and the Extra constants are a
// binary contract shared with other ntHash 1.0.4 implementations. Indexes
// built from these hashes are only comparable if all of them match.
//
// # Package Structure
//
//   - State machine: hasher.go (New, Roll, Hash, Extra), seed.go (seed tables)
//   - Input: encode.go (Encoder, Bases, ReverseComplement)
//   - Iteration: iter.go (Window, Hashes, HashAll), options.go
//   - rollinghash.Hash64 adapter: roller.go (Roller)
//   - Count-min sketch over Extra hashes: countmin/
//   - Memory-mapped k-mer count index: index/
//   - FASTA input (plain or gzip): internal/fasta/
//   - Commands: cmd/kmerindex (build, query, stats, verify, dump), cmd/bench
package kmerhash

// internal/game/generator.go
//
// Mine placement.
// Responsibilities:
//   - Produce exactly N unique in-bounds positions by uniform rejection sampling.
//   - Support replayable boards: a seed string is hashed with BLAKE2b-256 into
//     the PCG state, and a commitment (hash of that digest) can be published
//     before the game while the seed itself is only disclosed afterwards.
//
// Notes:
//   - There is no first-click exclusion; the first reveal may hit a mine.
//   - Precondition: mines < rows*columns. Violating it never terminates.
//     Session validates Settings before calling Generate.

package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"math/rand/v2"

	"github.com/zyedidia/generic/mapset"
	"golang.org/x/crypto/blake2b"
)

// Generator produces mine layouts.
type Generator interface {
	Generate(mines, rows, columns int) []Position
}

// RandomGenerator draws positions from a seeded PCG stream.
// It is not safe for concurrent use; each session owns one.
type RandomGenerator struct {
	seed string
	rng  *rand.Rand
}

// NewRandomGenerator seeds a generator from crypto/rand.
func NewRandomGenerator() *RandomGenerator {
	var b [16]byte
	_, _ = crand.Read(b[:])
	return NewSeededGenerator(hex.EncodeToString(b[:]))
}

// NewSeededGenerator returns a generator whose sequence of layouts is fully
// determined by seed.
func NewSeededGenerator(seed string) *RandomGenerator {
	sum := blake2b.Sum256([]byte(seed))
	src := rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:16]))
	return &RandomGenerator{seed: seed, rng: rand.New(src)}
}

// Generate returns mines unique positions within [0,rows) × [0,columns).
func (g *RandomGenerator) Generate(mines, rows, columns int) []Position {
	picked := mapset.New[Position]()
	out := make([]Position, 0, mines)
	for len(out) < mines {
		p := Position{Row: g.rng.IntN(rows), Col: g.rng.IntN(columns)}
		if picked.Has(p) {
			continue
		}
		picked.Put(p)
		out = append(out, p)
	}
	return out
}

// Seed returns the seed string. Disclose it only once the game is over.
func (g *RandomGenerator) Seed() string { return g.seed }

// Commitment is the hex BLAKE2b-256 of the seed digest. It can be published
// up front without revealing the layout.
func (g *RandomGenerator) Commitment() string { return Commit(g.seed) }

// Commit computes the commitment for seed.
func Commit(seed string) string {
	sum := blake2b.Sum256([]byte(seed))
	c := blake2b.Sum256(sum[:])
	return hex.EncodeToString(c[:])
}

// Layout is a fixed mine layout, used for replays and tests.
// It ignores the requested dimensions; Session rejects layouts that do not fit.
type Layout []Position

func (l Layout) Generate(mines, rows, columns int) []Position {
	return append([]Position(nil), l...)
}

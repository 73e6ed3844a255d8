// Package generator draws synthetic runoff and harvesting samples from the
// fixed reference tables in package domain.
package generator

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/couchcryptid/rainharvest/internal/domain"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"
)

// Stream selectors for the two PCG generators derived from one seed. Keeping
// the samplers on separate streams makes output independent of how rows are
// batched.
const (
	runoffStream  = 0x72756e6f6666 // "runoff"
	harvestStream = 0x68617276     // "harv"
)

// sampleNamespace scopes the deterministic sample IDs.
var sampleNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("rainharvest/sample"))

// Sampler generates runoff and harvesting rows. It is not safe for concurrent
// use; a single Sampler produces one ordered dataset.
type Sampler struct {
	seed uint64

	runoffRand  *rand.Rand
	noise       distuv.Normal
	harvestRand *rand.Rand
	loss        distuv.Uniform

	roofTypes []domain.RoofType
	locations []domain.Location
	next      int
}

// New creates a Sampler whose output is fully determined by seed.
func New(seed uint64) *Sampler {
	runoffSrc := rand.NewPCG(seed, runoffStream)
	harvestSrc := rand.NewPCG(seed, harvestStream)

	return &Sampler{
		seed:        seed,
		runoffRand:  rand.New(runoffSrc),
		noise:       distuv.Normal{Mu: 0, Sigma: domain.CoefficientNoiseStdDev, Src: runoffSrc},
		harvestRand: rand.New(harvestSrc),
		loss:        distuv.Uniform{Min: domain.MinInefficiency, Max: domain.MaxInefficiency, Src: harvestSrc},
		roofTypes:   domain.RoofTypes(),
		locations:   domain.Locations(),
	}
}

// RandomSeed returns a fresh seed for unseeded runs. Log it to make the run
// reproducible.
func RandomSeed() uint64 {
	return rand.Uint64()
}

// Seed returns the seed the sampler was created with.
func (s *Sampler) Seed() uint64 { return s.seed }

// Runoff draws n runoff coefficient rows.
func (s *Sampler) Runoff(n int) []domain.RunoffSample {
	out := make([]domain.RunoffSample, 0, max(n, 0))
	for range n {
		roof := s.roofTypes[s.runoffRand.IntN(len(s.roofTypes))]
		loc := s.locations[s.runoffRand.IntN(len(s.locations))]
		age := domain.MinRoofAge + s.runoffRand.IntN(domain.MaxRoofAge-domain.MinRoofAge+1)

		out = append(out, domain.RunoffSample{
			ID:                s.nextID(),
			RoofType:          roof.Name,
			RoofAge:           age,
			Region:            loc.Region,
			Location:          loc.Name,
			RunoffCoefficient: domain.RunoffCoefficient(roof.BaseCoefficient, age, loc.Region, s.noise.Rand()),
		})
	}
	return out
}

// Harvest derives one harvesting row per runoff row, preserving order. It
// fails only for locations missing from the reference table, which cannot
// happen for rows produced by Runoff.
func (s *Sampler) Harvest(runoff []domain.RunoffSample) ([]domain.HarvestSample, error) {
	out := make([]domain.HarvestSample, 0, len(runoff))
	for i, r := range runoff {
		loc, ok := domain.LookupLocation(r.Location)
		if !ok {
			return nil, fmt.Errorf("harvest row %d: unknown location %q", i, r.Location)
		}
		area := domain.MinRoofAreaSqM + s.harvestRand.IntN(domain.MaxRoofAreaSqM-domain.MinRoofAreaSqM+1)
		potential := domain.PotentialWater(area, loc.RainfallMM, r.RunoffCoefficient)

		out = append(out, domain.HarvestSample{
			ID:                r.ID,
			RoofAreaSqM:       area,
			RoofType:          r.RoofType,
			RoofAge:           r.RoofAge,
			RunoffCoefficient: r.RunoffCoefficient,
			Location:          r.Location,
			AnnualRainfallMM:  loc.RainfallMM,
			HarvestableLiters: domain.HarvestableWater(potential, r.RoofAge, s.loss.Rand()),
		})
	}
	return out, nil
}

func (s *Sampler) nextID() string {
	id := uuid.NewSHA1(sampleNamespace, []byte(strconv.FormatUint(s.seed, 10)+":"+strconv.Itoa(s.next)))
	s.next++
	return id.String()
}

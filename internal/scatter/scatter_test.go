package scatter

import (
	"math"
	"reflect"
	"sync"
	"testing"
)

// =============================================================================
// Reference Data
// =============================================================================

// mistReference is the hero mist band (base seed 20251222, 12 particles),
// recorded once and checked bit-for-bit.
var mistReference = []Particle{
	{79.04758828226477, 13.344633834436536, 4.556402020622045, 19.795873736031353, 1.1961981495609506, 0.19565735280513763, 15.767020683269948},
	{46.400241227820516, 65.59557465976104, 0.8944540154188871, 27.11688418732956, 1.5422705069649965, 0.24322774777654557, 26.93599896505475},
	{21.81406260933727, 59.32012308295816, 3.805664488580078, 36.69729250110686, 1.3996950147906317, 0.26431858762167393, 19.95532019296661},
	{64.40789587795734, 59.54513796279207, 1.4821949629113078, 39.952508532907814, 0.7229616890661418, 0.2743001510715112, 22.145454230718315},
	{24.73672174382955, 16.75721161440015, 1.2160472148098052, 19.49101013597101, 1.1420036273775622, 0.12414215749129653, 18.719043546821922},
	{67.82776261679828, 27.123566410969943, 0.07756952941417694, 32.07030522311106, 1.4997497172560543, 0.12582024790812285, 17.064150327816606},
	{72.63129136990756, 22.712004863657057, 4.836037445347756, 35.032126139849424, 1.5478214132832364, 0.1814287353027612, 12.812206369359046},
	{11.423227097839117, 55.484279558528215, 2.3105929093435407, 36.62238727835938, 1.018900327757001, 0.2190838259784505, 16.792901539243758},
	{37.13240681681782, 36.144492676481605, 5.845463883597404, 33.353260287083685, 1.138642668700777, 0.15691173415631054, 20.678876794409007},
	{53.585762018337846, 50.89125976106152, 1.7724462021142244, 34.246934060472995, 1.7555252107325943, 0.2409022722253576, 17.7168148458004},
	{97.11349678691477, 52.79222560953349, 1.35921144252643, 35.75685685686767, 0.7676586531335488, 0.21115521843545138, 22.245850483421236},
	{25.13966802507639, 26.668366292957217, 5.051017946563661, 36.567676288541406, 1.628383989352733, 0.11956307546701284, 11.068396463058889},
}

func equalBits(a, b []Particle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		fa, fb := a[i].Fields(), b[i].Fields()
		for j := range fa {
			if math.Float64bits(fa[j]) != math.Float64bits(fb[j]) {
				return false
			}
		}
	}
	return true
}

// =============================================================================
// Tests: Reference Sequence
// =============================================================================

func TestScatter_MistReference(t *testing.T) {
	got := Scatter(MistSeed+12*SeedStride, 12, MistLayer().Ranges)

	if len(got) != len(mistReference) {
		t.Fatalf("len = %d, want %d", len(got), len(mistReference))
	}
	for i := range got {
		gf, wf := got[i].Fields(), mistReference[i].Fields()
		for j := range gf {
			if math.Float64bits(gf[j]) != math.Float64bits(wf[j]) {
				t.Errorf("particle %d %s = %v, want %v", i, FieldNames[j], gf[j], wf[j])
			}
		}
	}
}

func TestMistLayer_MatchesReference(t *testing.T) {
	got := MistLayer().Particles()
	if !equalBits(got, mistReference) {
		t.Fatalf("MistLayer().Particles() diverged from reference:\n got %v\nwant %v", got, mistReference)
	}

	for i, p := range got {
		if p.Top < 6 || p.Top >= 76 {
			t.Errorf("particle %d top = %v, want [6, 76)", i, p.Top)
		}
		if p.Opacity < 0.1 || p.Opacity >= 0.28 {
			t.Errorf("particle %d opacity = %v, want [0.1, 0.28)", i, p.Opacity)
		}
	}
}

func TestEffectiveSeed(t *testing.T) {
	tests := []struct {
		name  string
		seed  int64
		count uint
		want  uint32
	}{
		{"mist", MistSeed, 12, 20251594},
		{"zero", 0, 0, 0},
		{"count only", 0, 10, 310},
		{"negative seed wraps", -1, 0, math.MaxUint32},
		{"negative seed plus count", -31, 1, 0},
		{"large seed truncates", 1 << 32, 1, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveSeed(tt.seed, tt.count); got != tt.want {
				t.Errorf("EffectiveSeed(%d, %d) = %d, want %d", tt.seed, tt.count, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Tests: Properties
// =============================================================================

func TestGenerate_Deterministic(t *testing.T) {
	seeds := []int64{0, 1, -1, 42, MistSeed, math.MaxInt64, math.MinInt64}
	counts := []uint{0, 1, 7, 12, 100}

	for _, seed := range seeds {
		for _, count := range counts {
			cfg := Config{Seed: seed, Count: count}
			a := Generate(cfg)
			b := Generate(cfg)
			if !equalBits(a, b) {
				t.Errorf("Generate(%+v) not reproducible", cfg)
			}
		}
	}
}

func TestGenerate_Length(t *testing.T) {
	for count := uint(0); count <= 1000; count++ {
		got := Generate(Config{Seed: 7, Count: count})
		if uint(len(got)) != count {
			t.Fatalf("len(Generate(count=%d)) = %d", count, len(got))
		}
	}
}

func TestGenerate_ZeroCount(t *testing.T) {
	for _, seed := range []int64{0, 1, -99, MistSeed} {
		got := Generate(Config{Seed: seed, Count: 0})
		if got == nil {
			t.Errorf("Generate(seed=%d, count=0) = nil, want empty slice", seed)
		}
		if len(got) != 0 {
			t.Errorf("Generate(seed=%d, count=0) len = %d, want 0", seed, len(got))
		}
	}
}

func TestGenerate_RangeBounds(t *testing.T) {
	layers := []Layer{
		MistLayer(),
		FirefliesLayer(),
		{Name: "default", Ranges: DefaultRanges()},
	}

	for _, l := range layers {
		t.Run(l.Name, func(t *testing.T) {
			spans := l.Ranges.Spans()
			for seed := int64(-50); seed < 50; seed++ {
				for _, p := range l.With(seed, 200).Particles() {
					for j, v := range p.Fields() {
						if !spans[j].Contains(v) {
							t.Fatalf("seed %d: %s = %v outside %s", seed, FieldNames[j], v, spans[j])
						}
					}
				}
			}
		})
	}
}

func TestGenerate_SeedSensitivity(t *testing.T) {
	const pairs = 2000
	collisions := 0

	for i := int64(0); i < pairs; i++ {
		a := Generate(Config{Seed: i, Count: 12})
		b := Generate(Config{Seed: i + 1 + i*7919, Count: 12})
		if equalBits(a, b) {
			collisions++
		}
	}

	if collisions != 0 {
		t.Errorf("%d of %d distinct seed pairs produced identical layouts", collisions, pairs)
	}
}

func TestGenerate_CountDeAliasing(t *testing.T) {
	for seed := int64(0); seed < 100; seed++ {
		for countA := uint(1); countA < 20; countA++ {
			countB := countA + 1
			a := Generate(Config{Seed: seed, Count: countA})
			b := Generate(Config{Seed: seed, Count: countB})
			if equalBits(a, b[:countA]) {
				t.Fatalf("seed %d: counts %d and %d share a prefix", seed, countA, countB)
			}
		}
	}
}

func TestGenerate_DrawOrder(t *testing.T) {
	// Each field consumes one draw, so with unit spans the fields replay the
	// raw LCG stream in order.
	unit := Span{Base: 0, Width: 1}
	r := Ranges{Left: unit, Top: unit, Delay: unit, Duration: unit, Scale: unit, Opacity: unit, Blur: unit}

	got := Scatter(99, 3, r)
	rng := NewLCG(99)
	for i, p := range got {
		for j, v := range p.Fields() {
			if want := rng.Float64(); v != want {
				t.Errorf("particle %d %s = %v, want %v", i, FieldNames[j], v, want)
			}
		}
	}
}

func TestGenerate_UsesDefaultRanges(t *testing.T) {
	cfg := Config{Seed: 3, Count: 5}
	if !reflect.DeepEqual(Generate(cfg), GenerateRanges(cfg, DefaultRanges())) {
		t.Error("Generate should use DefaultRanges")
	}
}

func TestGenerate_Concurrent(t *testing.T) {
	want := MistLayer().Particles()

	var wg sync.WaitGroup
	errs := make(chan int, 32)
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if !equalBits(MistLayer().Particles(), want) {
				errs <- id
			}
		}(g)
	}
	wg.Wait()
	close(errs)

	for id := range errs {
		t.Errorf("goroutine %d produced a different layout", id)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkGenerate_Mist(b *testing.B) {
	l := MistLayer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = l.Particles()
	}
}

func BenchmarkGenerate_1000(b *testing.B) {
	cfg := Config{Seed: MistSeed, Count: 1000}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Generate(cfg)
	}
}

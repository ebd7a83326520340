package features

import "github.com/vietddude/walletscore/internal/core/domain"

// tokenDiversityWeight is the score per distinct input or output token.
const tokenDiversityWeight = 5.0

// ExtractSwap computes swap trading features.
//
// Frequency is swaps per active day, where active days span every
// transaction of the wallet. A wallet whose transactions share a single
// timestamp has no measurable span and gets a frequency of 0.
func ExtractSwap(f *Frame) domain.SwapFeatures {
	swaps := f.Where(domain.TxTypeSwap)

	numSwaps := swaps.Len()
	volume := swaps.SumAmountUSD()

	var diversity float64
	if !swaps.Empty() {
		diversity = float64(swaps.NUnique(f.TokenIn)+swaps.NUnique(f.TokenOut)) * tokenDiversityWeight
	}

	activeDays, ok := f.All().SpanDays()
	if !ok {
		activeDays = 1.0
	}

	return domain.SwapFeatures{
		TotalSwapVolume:     finite(volume),
		NumSwaps:            numSwaps,
		UniquePoolsSwapped:  swaps.NUnique(f.Pool),
		AvgSwapSize:         finite(safeDivide(volume, float64(numSwaps), 0)),
		TokenDiversityScore: finite(diversity),
		SwapFrequencyScore:  finite(safeDivide(float64(numSwaps), activeDays, 0)),
	}
}

package types

import "math"

// MaxStars is the width of a star rating row.
const MaxStars = 5

// StarRating splits an average rating into rendered star counts.
type StarRating struct {
	Full  int
	Half  bool
	Empty int
}

// Stars floors the rating into full stars, adds a half star when the
// fractional part is at least 0.5, and pads the row to MaxStars.
func Stars(rating float64) StarRating {
	if math.IsNaN(rating) || rating < 0 {
		rating = 0
	}
	if rating > MaxStars {
		rating = MaxStars
	}

	full := int(math.Floor(rating))
	half := rating-float64(full) >= 0.5 && full < MaxStars
	empty := MaxStars - full
	if half {
		empty--
	}
	return StarRating{Full: full, Half: half, Empty: empty}
}

// String renders the row using ★, ½ and ☆.
func (s StarRating) String() string {
	out := make([]rune, 0, MaxStars)
	for i := 0; i < s.Full; i++ {
		out = append(out, '★')
	}
	if s.Half {
		out = append(out, '½')
	}
	for i := 0; i < s.Empty; i++ {
		out = append(out, '☆')
	}
	return string(out)
}

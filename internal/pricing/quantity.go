package pricing

import "strconv"

// Band maps a head/page count onto a capped tier key: counts at or above
// capAt collapse into the "<capAt>+" tier when plus is set.
func Band(quantity, capAt int, plus bool) string {
	if quantity < 1 {
		quantity = 1
	}
	if capAt > 0 && quantity >= capAt {
		if plus {
			return strconv.Itoa(capAt) + "+"
		}
		return strconv.Itoa(capAt)
	}
	return strconv.Itoa(quantity)
}

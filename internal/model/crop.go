package model

import "strings"

// Crop is one of the supported crop names.
type Crop string

const (
	CropWheat     Crop = "Wheat"
	CropRice      Crop = "Rice"
	CropCorn      Crop = "Corn (Maize)"
	CropCotton    Crop = "Cotton"
	CropSugarcane Crop = "Sugarcane"
	CropTomato    Crop = "Tomato"
	CropPotato    Crop = "Potato"
	CropSoybean   Crop = "Soybean"
	CropCabbage   Crop = "Cabbage"
	CropCarrot    Crop = "Carrot"
	CropLettuce   Crop = "Lettuce"
	CropSpinach   Crop = "Spinach"
	CropOnion     Crop = "Onion"
	CropGarlic    Crop = "Garlic"
)

// DefaultCrop is preselected by the input form.
const DefaultCrop = CropTomato

var catalog = []Crop{
	CropWheat, CropRice, CropCorn, CropCotton, CropSugarcane, CropTomato, CropPotato,
	CropSoybean, CropCabbage, CropCarrot, CropLettuce, CropSpinach, CropOnion, CropGarlic,
}

// Crops returns the catalog in display order.
func Crops() []Crop {
	out := make([]Crop, len(catalog))
	copy(out, catalog)
	return out
}

// ParseCrop matches s against the catalog ignoring case and surrounding spaces
// and returns the canonical name.
func ParseCrop(s string) (Crop, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, c := range catalog {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

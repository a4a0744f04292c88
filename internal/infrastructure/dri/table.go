package dri

import (
	"strings"

	"github.com/plateplan/backend/internal/domain"
)

// Tracked micronutrient keys. This set is the fixed reference set reported
// in every solve response; keys carry their unit as a suffix.
const (
	KeyCalcium    = "calcium_mg"
	KeyIron       = "iron_mg"
	KeyMagnesium  = "magnesium_mg"
	KeyZinc       = "zinc_mg"
	KeyPotassium  = "potassium_mg"
	KeyPhosphorus = "phosphorus_mg"
	KeySelenium   = "selenium_ug"
	KeyCopper     = "copper_mg"
	KeyManganese  = "manganese_mg"
	KeyVitaminA   = "vitamin_a_ug"
	KeyVitaminC   = "vitamin_c_mg"
	KeyVitaminD   = "vitamin_d_ug"
	KeyVitaminE   = "vitamin_e_mg"
	KeyVitaminK   = "vitamin_k_ug"
	KeyThiamin    = "thiamin_mg"
	KeyRiboflavin = "riboflavin_mg"
	KeyNiacin     = "niacin_mg"
	KeyVitaminB6  = "vitamin_b6_mg"
	KeyFolate     = "folate_ug"
	KeyVitaminB12 = "vitamin_b12_ug"
)

// Table is an in-memory DRI/EAR/UL reference table keyed by sex and age
// band. Values follow the NIH Dietary Reference Intakes for adults; a zero
// EAR or UL means none has been established.
type Table struct {
	profiles map[string]domain.DRIProfile
}

// ageBands recognized by the table, oldest cutoff last.
var ageBands = []string{"19-30", "31-50", "51-70", "70+"}

const (
	defaultSex     = "female"
	defaultAgeBand = "31-50"
)

// NewTable builds the reference table for all supported demographics.
func NewTable() *Table {
	t := &Table{profiles: make(map[string]domain.DRIProfile)}
	for _, sex := range []string{"male", "female"} {
		for _, band := range ageBands {
			t.profiles[profileKey(sex, band)] = buildProfile(sex, band)
		}
	}
	return t
}

// Profile resolves the reference table for a demographic. Unknown sex or
// age band falls back to the default adult profile so annotation never
// fails a solve.
func (t *Table) Profile(d domain.Demographic) domain.DRIProfile {
	sex := strings.ToLower(strings.TrimSpace(d.Sex))
	if sex != "male" && sex != "female" {
		sex = defaultSex
	}
	band := strings.TrimSpace(d.AgeBand)
	if !knownAgeBand(band) {
		band = defaultAgeBand
	}
	return t.profiles[profileKey(sex, band)]
}

func knownAgeBand(band string) bool {
	for _, b := range ageBands {
		if b == band {
			return true
		}
	}
	return false
}

func profileKey(sex, band string) string { return sex + ":" + band }

// buildProfile assembles one demographic's references. Most adult values are
// constant across bands; the exceptions (iron for women of reproductive age,
// calcium and vitamin D for older adults, age-dependent magnesium) are
// adjusted below.
func buildProfile(sex, band string) domain.DRIProfile {
	male := sex == "male"
	older := band == "51-70" || band == "70+"

	p := domain.DRIProfile{
		KeyPotassium:  {DRI: 2600, EAR: 0, UL: 0},
		KeyPhosphorus: {DRI: 700, EAR: 580, UL: 4000},
		KeySelenium:   {DRI: 55, EAR: 45, UL: 400},
		KeyCopper:     {DRI: 0.9, EAR: 0.7, UL: 10},
		KeyManganese:  {DRI: 1.8, EAR: 0, UL: 11},
		KeyVitaminC:   {DRI: 75, EAR: 60, UL: 2000},
		KeyVitaminE:   {DRI: 15, EAR: 12, UL: 1000},
		KeyVitaminK:   {DRI: 90, EAR: 0, UL: 0},
		KeyThiamin:    {DRI: 1.1, EAR: 0.9, UL: 0},
		KeyRiboflavin: {DRI: 1.1, EAR: 0.9, UL: 0},
		KeyNiacin:     {DRI: 14, EAR: 11, UL: 35},
		KeyVitaminB6:  {DRI: 1.3, EAR: 1.1, UL: 100},
		KeyFolate:     {DRI: 400, EAR: 320, UL: 1000},
		KeyVitaminB12: {DRI: 2.4, EAR: 2.0, UL: 0},
		KeyVitaminA:   {DRI: 700, EAR: 500, UL: 3000},
		KeyZinc:       {DRI: 8, EAR: 6.8, UL: 40},
		KeyIron:       {DRI: 18, EAR: 8.1, UL: 45},
		KeyCalcium:    {DRI: 1000, EAR: 800, UL: 2500},
		KeyMagnesium:  {DRI: 310, EAR: 255, UL: 350},
		KeyVitaminD:   {DRI: 15, EAR: 10, UL: 100},
	}

	if male {
		p[KeyPotassium] = domain.DRIReference{DRI: 3400}
		p[KeyVitaminC] = domain.DRIReference{DRI: 90, EAR: 75, UL: 2000}
		p[KeyVitaminK] = domain.DRIReference{DRI: 120}
		p[KeyThiamin] = domain.DRIReference{DRI: 1.2, EAR: 1.0}
		p[KeyRiboflavin] = domain.DRIReference{DRI: 1.3, EAR: 1.1}
		p[KeyNiacin] = domain.DRIReference{DRI: 16, EAR: 12, UL: 35}
		p[KeyVitaminA] = domain.DRIReference{DRI: 900, EAR: 625, UL: 3000}
		p[KeyZinc] = domain.DRIReference{DRI: 11, EAR: 9.4, UL: 40}
		p[KeyIron] = domain.DRIReference{DRI: 8, EAR: 6, UL: 45}
		if band == "19-30" {
			p[KeyMagnesium] = domain.DRIReference{DRI: 400, EAR: 330, UL: 350}
		} else {
			p[KeyMagnesium] = domain.DRIReference{DRI: 420, EAR: 350, UL: 350}
		}
	} else if band == "19-30" {
		p[KeyMagnesium] = domain.DRIReference{DRI: 310, EAR: 255, UL: 350}
	} else {
		p[KeyMagnesium] = domain.DRIReference{DRI: 320, EAR: 265, UL: 350}
	}

	if older {
		if !male {
			p[KeyIron] = domain.DRIReference{DRI: 8, EAR: 5, UL: 45}
		}
		if band == "70+" || !male {
			p[KeyCalcium] = domain.DRIReference{DRI: 1200, EAR: 1000, UL: 2000}
		}
		p[KeyVitaminB6] = domain.DRIReference{DRI: 1.5, EAR: 1.3, UL: 100}
		if male {
			p[KeyVitaminB6] = domain.DRIReference{DRI: 1.7, EAR: 1.4, UL: 100}
		}
		if band == "70+" {
			p[KeyVitaminD] = domain.DRIReference{DRI: 20, EAR: 10, UL: 100}
		}
	}

	return p
}

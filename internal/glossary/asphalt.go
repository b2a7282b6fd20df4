package glossary

import "github.com/jonathan/epd-matcher/internal/types"

// Asphalt returns the grammar for German asphalt mixture designations after
// TL Asphalt-StB (codes like "AC 16 B S"). Type rules are ordered specific
// first: the AC rule carries the generic family aliases ("asphalt",
// "bitumen") and must stay last so it cannot shadow SMA/MA/PA mentions.
func Asphalt() Grammar {
	return Grammar{
		Name:       "asphalt",
		Delimiters: "/,;-",
		Types: []TypeRule{
			{
				Code: "SMA",
				Name: "Splittmastixasphalt",
				Norm: "DIN EN 13108-5",
				SearchTerms: []string{
					"Splittmastixasphalt", "Splittmastix", "SMA",
					"Stone Mastic", "Mastixasphalt",
				},
				Aliases:      []string{"splittmastix", "mastix"},
				ImpliedLayer: types.LayerSurface,
			},
			{
				Code: "MA",
				Name: "Gussasphalt",
				Norm: "DIN EN 13108-6",
				SearchTerms: []string{
					"Gussasphalt", "Mastic Asphalt", "Asphaltmastix",
					"Gießasphalt", "MA",
				},
				Aliases:      []string{"gussasphalt", "gießasphalt", "mastic"},
				ImpliedLayer: types.LayerSurface,
			},
			{
				Code: "PA",
				Name: "Offenporiger Asphalt",
				Norm: "DIN EN 13108-7",
				SearchTerms: []string{
					"Offenporiger Asphalt", "OPA", "Drainasphalt",
					"Porous Asphalt", "Drainageschicht", "lärmmindernd",
					"Flüsterasphalt", "PA",
				},
				Aliases:      []string{"offenporig", "drainasphalt", "opa", "flüsterasphalt"},
				ImpliedLayer: types.LayerSurface,
			},
			{
				Code: "AC",
				Name: "Asphaltbeton",
				Norm: "DIN EN 13108-1",
				SearchTerms: []string{
					"Asphaltbeton", "Asphalt", "Bitumen", "bituminös",
					"Asphaltmischgut", "Heißasphalt", "Walzasphalt",
				},
				Aliases: []string{"aspahlt", "asphalt", "bitumen", "bituminös"},
			},
		},
		// Ordered longest code first so compound tokens and layer names
		// resolve to "Tragdeck" before "Trag" or "Deck" can claim them.
		Layers: []LayerRule{
			{
				Code:         "TD",
				Name:         "Asphalttragdeckschicht",
				Role:         types.LayerBaseSurface,
				RequiredTerm: "Tragdeck",
				SearchTerms: []string{
					"Asphalttragdeckschicht", "Tragdeckschicht",
					"kombinierte Schicht", "ATDS",
				},
				NameVariants: []string{"tragdeckschicht", "tragdeck"},
			},
			{
				Code:         "T",
				Name:         "Asphalttragschicht",
				Role:         types.LayerBase,
				RequiredTerm: "Trag",
				SearchTerms: []string{
					"Asphalttragschicht", "Tragschicht", "Asphalt-Tragschicht",
					"bituminöse Tragschicht", "ATS",
				},
				NameVariants: []string{"tragschicht", "trag"},
			},
			{
				Code:         "B",
				Name:         "Asphaltbinder",
				Role:         types.LayerBinder,
				RequiredTerm: "Binder",
				SearchTerms: []string{
					"Asphaltbinder", "Binderschicht", "Asphaltbinderschicht",
					"Binder", "ABi",
				},
				NameVariants: []string{"binderschicht", "binder"},
			},
			{
				Code:         "D",
				Name:         "Asphaltdeckschicht",
				Role:         types.LayerSurface,
				RequiredTerm: "Deck",
				SearchTerms: []string{
					"Asphaltdeckschicht", "Deckschicht", "Asphalt-Deckschicht",
					"Verschleißschicht", "Fahrbahndecke", "ADS", "Decke",
				},
				NameVariants: []string{"deckschicht", "deck", "decke", "verschleiß"},
			},
		},
		StressClasses: []StressRule{
			{Code: "S", Name: "besondere Beanspruchung", Applications: []string{"Autobahnen", "Bundesstraßen", "Industrieflächen"}},
			{Code: "N", Name: "normale Beanspruchung", Applications: []string{"Landesstraßen", "Kreisstraßen"}},
			{Code: "L", Name: "leichte Beanspruchung", Applications: []string{"Wohnstraßen", "Radwege", "Parkplätze"}},
		},
		// Standardized designations after TL Asphalt-StB 07/13.
		KnownDesignations: []string{
			"AC 32 T S", "AC 22 T S", "AC 16 T S",
			"AC 32 T N", "AC 22 T N", "AC 16 T N",
			"AC 32 T L", "AC 22 T L", "AC 16 T L",
			"AC 16 TD",
			"AC 22 B S", "AC 16 B S", "AC 16 B N", "AC 11 B N",
			"AC 16 D S", "AC 11 D S", "AC 8 D S",
			"AC 11 D N", "AC 8 D N",
			"AC 11 D L", "AC 8 D L", "AC 5 D L",
			"SMA 11 S", "SMA 8 S", "SMA 5 S", "SMA 8 N", "SMA 5 N",
			"MA 11 S", "MA 8 S", "MA 5 S", "MA 11 N", "MA 8 N", "MA 5 N",
			"PA 16", "PA 11", "PA 8",
		},
		PmBKeywords: []string{
			"PMB", "POLYMER", "MODIFIZIERT", "ELASTOMER",
			"10/40-65", "25/55-55", "45/80-50", "40/100-65",
		},
		ExclusionTerms: []string{
			"Betonpflaster", "Pflasterstein", "Betonstein",
			"Betonsteinpflaster", "Verbundpflaster",
			"C20/25", "C25/30", "C30/37", "C35/45", "C40/50", "C45/55", "C50/60",
			"Mörtel", "Estrich",
			"Kalksandstein", "Mauerwerk", "Ziegel",
			"Anhydrit", "Gips",
			"HGT",
		},
		GenericTerms: []string{
			"asphalt", "aspahlt",
			"bitumen", "bituminös", "bituminos",
			"schwarzdecke", "heißmischgut",
		},
		ForcedExclusions: []ForcedExclusionRule{
			{
				ID: "membrane_mismatch",
				Terms: []string{
					"bitumenbahn", "schweißbahn", "schweissbahn",
					"dachbahn", "abdichtungsbahn", "dichtungsbahn",
				},
				Description: "waterproofing membranes share bitumen keywords with paving mixtures but are a different product class",
			},
		},
	}
}

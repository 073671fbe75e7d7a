package query

import (
	"github.com/famdb/famdb/pkg/family"
	"github.com/famdb/famdb/pkg/fileset"
)

// Filters carries the `families` subcommand's filter flags. Build
// compiles them in a fixed pipeline order: curated/uncurated -> name
// prefix -> class prefix -> stage -> require-general-threshold.
type Filters struct {
	Curated                 bool
	Uncurated               bool
	NamePrefix              string
	ClassPrefix             string
	Stage                   int
	HasStage                bool
	RequireGeneralThreshold bool
}

// Build compiles the filters into the ordered predicate chain
// fileset.IterFamiliesForTaxon/FamiliesForTaxa apply.
func (f Filters) Build() []fileset.FamilyFilter {
	var chain []fileset.FamilyFilter

	if f.Curated || f.Uncurated {
		chain = append(chain, func(fam *family.Family) bool {
			if f.Curated && fam.Curated {
				return true
			}
			if f.Uncurated && !fam.Curated {
				return true
			}
			return false
		})
	}

	if f.NamePrefix != "" {
		prefix := f.NamePrefix
		chain = append(chain, func(fam *family.Family) bool {
			return fam.MatchesNamePrefix(prefix)
		})
	}

	if f.ClassPrefix != "" {
		prefix := f.ClassPrefix
		chain = append(chain, func(fam *family.Family) bool {
			return fam.MatchesClassPrefix(prefix)
		})
	}

	if f.HasStage {
		stage := f.Stage
		chain = append(chain, func(fam *family.Family) bool {
			return fam.MatchesStage(stage)
		})
	}

	if f.RequireGeneralThreshold {
		chain = append(chain, func(fam *family.Family) bool {
			return fam.HasGeneralThreshold()
		})
	}

	return chain
}

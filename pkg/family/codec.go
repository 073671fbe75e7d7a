package family

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/famdb/famdb/pkg/container"
	"github.com/famdb/famdb/pkg/schema"
)

// Attribute and dataset key suffixes under a family's bin group. The
// codec never decides inline-vs-chunked storage itself: consensus/HMM
// payloads always go through SetDataset/GetDataset, which draws that
// line in pkg/container.
const (
	attrVersion        = "version"
	attrName           = "name"
	attrAltNames       = "alt_names"
	attrDescription    = "description"
	attrClassification = "classification"
	attrClades         = "clades"
	attrCitations      = "citations"
	attrDateCreated    = "date_created"
	attrDateModified   = "date_modified"
	attrLength         = "length"
	attrRMType         = "rm_type"
	attrRMSubType      = "rm_subtype"
	attrRMSearch       = "rm_search_stages"
	attrRMBuffer       = "rm_buffer_stages"
	attrTargetSiteCons = "target_site_cons"
	attrRefineable     = "refineable"
	attrHMMGA          = "hmm_ga"
	attrHMMTC          = "hmm_tc"
	attrHMMNC          = "hmm_nc"
	attrHMMHasGeneral  = "hmm_has_general"
	attrHMMThresholds  = "hmm_thresholds"
	attrUnknown        = "unknown_json"

	datasetConsensus = "consensus"
	datasetHMM       = "hmm"
)

var knownAttrs = map[string]bool{
	attrVersion: true, attrName: true, attrAltNames: true, attrDescription: true,
	attrClassification: true, attrClades: true, attrCitations: true,
	attrDateCreated: true, attrDateModified: true, attrLength: true,
	attrRMType: true, attrRMSubType: true, attrRMSearch: true, attrRMBuffer: true,
	attrTargetSiteCons: true, attrRefineable: true, attrHMMGA: true, attrHMMTC: true,
	attrHMMNC: true, attrHMMHasGeneral: true, attrHMMThresholds: true, attrUnknown: true,
}

// Encode writes f into c under its accession's bin group.
// Unknown attributes round-trip verbatim via f.Unknown.
func Encode(c *container.Container, f *Family) error {
	group := schema.FamilyGroup(f.Accession)

	setAttr := func(key, value string) error {
		return c.SetAttr(group+"/"+key, value)
	}
	setJSON := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("family %s: encode %s: %w", f.Accession, key, err)
		}
		return setAttr(key, string(b))
	}

	if err := setAttr(attrVersion, strconv.Itoa(f.Version)); err != nil {
		return err
	}
	if err := setAttr(attrName, f.Name); err != nil {
		return err
	}
	if err := setJSON(attrAltNames, f.AlternateNames); err != nil {
		return err
	}
	if err := setAttr(attrDescription, f.Description); err != nil {
		return err
	}
	if err := setAttr(attrClassification, f.Classification); err != nil {
		return err
	}
	if err := setJSON(attrClades, f.Clades); err != nil {
		return err
	}
	if err := setJSON(attrCitations, f.Citations); err != nil {
		return err
	}
	if err := setAttr(attrDateCreated, f.DateCreated); err != nil {
		return err
	}
	if err := setAttr(attrDateModified, f.DateModified); err != nil {
		return err
	}
	if err := setAttr(attrLength, strconv.Itoa(f.Length)); err != nil {
		return err
	}
	if err := setAttr(attrRMType, f.RepeatMasker.Type); err != nil {
		return err
	}
	if err := setAttr(attrRMSubType, f.RepeatMasker.SubType); err != nil {
		return err
	}
	if err := setJSON(attrRMSearch, f.RepeatMasker.SearchStages); err != nil {
		return err
	}
	if err := setJSON(attrRMBuffer, f.RepeatMasker.BufferStages); err != nil {
		return err
	}
	if err := setAttr(attrTargetSiteCons, f.TargetSiteCons); err != nil {
		return err
	}
	if err := setAttr(attrRefineable, strconv.FormatBool(f.Refineable)); err != nil {
		return err
	}

	if f.HMM != nil {
		if err := setAttr(attrHMMGA, strconv.FormatFloat(f.HMM.GA, 'g', -1, 64)); err != nil {
			return err
		}
		if err := setAttr(attrHMMTC, strconv.FormatFloat(f.HMM.TC, 'g', -1, 64)); err != nil {
			return err
		}
		if err := setAttr(attrHMMNC, strconv.FormatFloat(f.HMM.NC, 'g', -1, 64)); err != nil {
			return err
		}
		if err := setAttr(attrHMMHasGeneral, strconv.FormatBool(f.HMM.HasGeneral)); err != nil {
			return err
		}
		if err := setJSON(attrHMMThresholds, f.HMM.Thresholds); err != nil {
			return err
		}
		if err := c.SetDataset(group+"/"+datasetHMM, f.HMM.Raw); err != nil {
			return fmt.Errorf("family %s: encode hmm payload: %w", f.Accession, err)
		}
	}

	if f.Consensus != "" {
		if err := c.SetDataset(group+"/"+datasetConsensus, []byte(strings.ToUpper(f.Consensus))); err != nil {
			return fmt.Errorf("family %s: encode consensus: %w", f.Accession, err)
		}
	}

	filtered := make(map[string]string, len(f.Unknown))
	for k, v := range f.Unknown {
		if !knownAttrs[k] {
			filtered[k] = v
		}
	}
	unknownJSON, err := json.Marshal(filtered)
	if err != nil {
		return fmt.Errorf("family %s: encode unknown attrs: %w", f.Accession, err)
	}
	return setAttr(attrUnknown, string(unknownJSON))
}

// UpdateLookups adds f's accession to the redundant lookup buckets
// (ByName, ByStage, ByTaxon) so readers can reach it without a families
// scan. Buckets are kept sorted and deduplicated; re-encoding the same
// family is a no-op.
func UpdateLookups(c *container.Container, f *Family) error {
	addTo := func(key string) error {
		var accs []string
		raw, found, err := c.GetDataset(key)
		if err != nil {
			return err
		}
		if found {
			if err := json.Unmarshal(raw, &accs); err != nil {
				return fmt.Errorf("family %s: lookup bucket %s: %w", f.Accession, key, err)
			}
		}
		for _, a := range accs {
			if a == f.Accession {
				return nil
			}
		}
		accs = append(accs, f.Accession)
		sort.Strings(accs)
		out, err := json.Marshal(accs)
		if err != nil {
			return err
		}
		return c.SetDataset(key, out)
	}

	names := append([]string{f.Name}, f.AlternateNames...)
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := addTo(schema.LookupByNameKey(strings.ToLower(name))); err != nil {
			return err
		}
	}
	for _, s := range f.Stages() {
		if err := addTo(schema.LookupByStageKey(s)); err != nil {
			return err
		}
	}
	for _, clade := range f.Clades {
		if err := addTo(schema.LookupByTaxonKey(clade)); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads the family stored at accession's bin group in c. ok is
// false when no family is stored at that accession.
func Decode(c *container.Container, accession string) (f *Family, ok bool, err error) {
	bare, curated, version, parseErr := ParseAccession(accession)
	if parseErr != nil {
		return nil, false, parseErr
	}
	group := schema.FamilyGroup(bare)

	getAttr := func(key string) (string, bool, error) {
		return c.GetAttr(group + "/" + key)
	}

	versionStr, found, err := getAttr(attrVersion)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	f = &Family{Accession: bare, Curated: curated, Version: version}
	if v, convErr := strconv.Atoi(versionStr); convErr == nil {
		f.Version = v
	}

	getJSON := func(key string, v any) error {
		raw, found, err := getAttr(key)
		if err != nil {
			return err
		}
		if !found || raw == "" {
			return nil
		}
		if unmarshalErr := json.Unmarshal([]byte(raw), v); unmarshalErr != nil {
			return fmt.Errorf("family %s: decode %s: %w", bare, key, unmarshalErr)
		}
		return nil
	}

	if f.Name, _, err = getAttr(attrName); err != nil {
		return nil, false, err
	}
	if err := getJSON(attrAltNames, &f.AlternateNames); err != nil {
		return nil, false, err
	}
	if f.Description, _, err = getAttr(attrDescription); err != nil {
		return nil, false, err
	}
	if f.Classification, _, err = getAttr(attrClassification); err != nil {
		return nil, false, err
	}
	if err := getJSON(attrClades, &f.Clades); err != nil {
		return nil, false, err
	}
	if err := getJSON(attrCitations, &f.Citations); err != nil {
		return nil, false, err
	}
	if f.DateCreated, _, err = getAttr(attrDateCreated); err != nil {
		return nil, false, err
	}
	if f.DateModified, _, err = getAttr(attrDateModified); err != nil {
		return nil, false, err
	}
	if lengthStr, found, lenErr := getAttr(attrLength); lenErr != nil {
		return nil, false, lenErr
	} else if found {
		f.Length, _ = strconv.Atoi(lengthStr)
	}
	if f.RepeatMasker.Type, _, err = getAttr(attrRMType); err != nil {
		return nil, false, err
	}
	if f.RepeatMasker.SubType, _, err = getAttr(attrRMSubType); err != nil {
		return nil, false, err
	}
	if err := getJSON(attrRMSearch, &f.RepeatMasker.SearchStages); err != nil {
		return nil, false, err
	}
	if err := getJSON(attrRMBuffer, &f.RepeatMasker.BufferStages); err != nil {
		return nil, false, err
	}
	if f.TargetSiteCons, _, err = getAttr(attrTargetSiteCons); err != nil {
		return nil, false, err
	}
	if refStr, found, refErr := getAttr(attrRefineable); refErr != nil {
		return nil, false, refErr
	} else if found {
		f.Refineable, _ = strconv.ParseBool(refStr)
	}

	if hasGeneralStr, found, hgErr := getAttr(attrHMMHasGeneral); hgErr != nil {
		return nil, false, hgErr
	} else if found {
		hmmPayload, hmmFound, hmmErr := c.GetDataset(group + "/" + datasetHMM)
		if hmmErr != nil {
			return nil, false, hmmErr
		}
		h := &HMM{}
		if hmmFound {
			h.Raw = hmmPayload
		}
		if gaStr, ok, gaErr := getAttr(attrHMMGA); gaErr == nil && ok {
			h.GA, _ = strconv.ParseFloat(gaStr, 64)
		} else if gaErr != nil {
			return nil, false, gaErr
		}
		if tcStr, ok, tcErr := getAttr(attrHMMTC); tcErr == nil && ok {
			h.TC, _ = strconv.ParseFloat(tcStr, 64)
		} else if tcErr != nil {
			return nil, false, tcErr
		}
		if ncStr, ok, ncErr := getAttr(attrHMMNC); ncErr == nil && ok {
			h.NC, _ = strconv.ParseFloat(ncStr, 64)
		} else if ncErr != nil {
			return nil, false, ncErr
		}
		h.HasGeneral, _ = strconv.ParseBool(hasGeneralStr)
		if err := getJSON(attrHMMThresholds, &h.Thresholds); err != nil {
			return nil, false, err
		}
		f.HMM = h
	}

	consensus, found, err := c.GetDataset(group + "/" + datasetConsensus)
	if err != nil {
		return nil, false, err
	}
	if found {
		f.Consensus = string(consensus)
	}

	f.Unknown = map[string]string{}
	if err := getJSON(attrUnknown, &f.Unknown); err != nil {
		return nil, false, err
	}

	return f, true, nil
}

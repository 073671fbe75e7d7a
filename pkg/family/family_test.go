package family

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/famdb/famdb/pkg/container"
	"github.com/famdb/famdb/pkg/schema"
)

func openTest(t *testing.T) *container.Container {
	t.Helper()
	c, err := container.Open(t.TempDir(), container.ReadWrite, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestParseAccession(t *testing.T) {
	acc, curated, version, err := ParseAccession("df000000001.3")
	require.NoError(t, err)
	require.Equal(t, "DF000000001", acc)
	require.True(t, curated)
	require.Equal(t, 3, version)

	acc, curated, version, err = ParseAccession("DR000000042")
	require.NoError(t, err)
	require.Equal(t, "DR000000042", acc)
	require.False(t, curated)
	require.Equal(t, 0, version)
}

func TestParseAccessionRejectsMalformed(t *testing.T) {
	_, _, _, err := ParseAccession("XF000000001")
	require.Error(t, err)
	_, _, _, err = ParseAccession("DF")
	require.Error(t, err)
}

func TestMatchesClassPrefix(t *testing.T) {
	f := &Family{Classification: "root;LTR/ERVL"}
	require.True(t, f.MatchesClassPrefix("LTR"))
	require.True(t, f.MatchesClassPrefix(""))
	require.False(t, f.MatchesClassPrefix("xLTR"))
	require.False(t, f.MatchesClassPrefix("ERVL"))
}

func TestMatchesStage(t *testing.T) {
	f := &Family{RepeatMasker: RepeatMaskerAnnotation{
		SearchStages: []int{35},
		BufferStages: []BufferStage{{Stage: 40, Start: 1, End: 100}},
	}}
	require.True(t, f.MatchesStage(35))
	require.True(t, f.MatchesStage(40))
	require.False(t, f.MatchesStage(99))
}

func TestWrapSequenceAt60Columns(t *testing.T) {
	seq := ""
	for i := 0; i < 130; i++ {
		seq += "A"
	}
	wrapped := WrapSequence(seq)
	lines := 0
	for _, r := range wrapped {
		if r == '\n' {
			lines++
		}
	}
	require.Equal(t, 2, lines)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := openTest(t)

	f := &Family{
		Accession:      "DF000000001",
		Version:        2,
		Curated:        true,
		Name:           "MIR3",
		AlternateNames: []string{"MIR3a"},
		Description:    "ancient SINE",
		Classification: "root;SINE/MIR",
		Clades:         []int{9606, 10090},
		Consensus:      "acgtacgtacgt",
		HMM: &HMM{
			Raw:        []byte("HMMER3/f\n"),
			GA:         20.1,
			TC:         19.8,
			NC:         18.0,
			HasGeneral: true,
			Thresholds: []Threshold{
				{TaxonID: 9606, TaxonName: "Homo sapiens", GA: 21.0, TC: 20.5, NC: 19.0, FDR: 0.01},
			},
		},
		Citations: []Citation{{
			Authors: "Smit AFA",
			Title:   "MIRs are classic, tRNA-derived SINEs that amplified before the mammalian radiation",
			Journal: "Nucleic Acids Res 23(1), 1995.",
		}},
		DateCreated:  "2003-01-01",
		DateModified: "2020-05-01",
		Length:       240,
		RepeatMasker: RepeatMaskerAnnotation{
			Type: "SINE", SubType: "MIR",
			SearchStages: []int{35},
			BufferStages: []BufferStage{{Stage: 40, Start: 1, End: 240}},
		},
		TargetSiteCons: "TSD",
		Refineable:     true,
		Unknown:        map[string]string{"legacy_flag": "1"},
	}

	require.NoError(t, Encode(c, f))

	got, ok, err := Decode(c, "DF000000001")
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, f.Accession, got.Accession)
	require.Equal(t, f.Version, got.Version)
	require.True(t, got.Curated)
	require.Equal(t, f.Name, got.Name)
	require.Equal(t, f.AlternateNames, got.AlternateNames)
	require.Equal(t, f.Classification, got.Classification)
	require.Equal(t, f.Clades, got.Clades)
	require.Equal(t, f.Citations, got.Citations)
	require.Equal(t, "ACGTACGTACGT", got.Consensus)
	require.NotNil(t, got.HMM)
	require.Equal(t, f.HMM.GA, got.HMM.GA)
	require.Equal(t, f.HMM.Thresholds, got.HMM.Thresholds)
	require.Equal(t, f.RepeatMasker, got.RepeatMasker)
	require.Equal(t, "1", got.Unknown["legacy_flag"])
}

func TestDecodeMissingFamily(t *testing.T) {
	c := openTest(t)
	_, ok, err := Decode(c, "DF000000099")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasGeneralThreshold(t *testing.T) {
	f := &Family{}
	require.False(t, f.HasGeneralThreshold())
	f.HMM = &HMM{HasGeneral: true}
	require.True(t, f.HasGeneralThreshold())
}

func TestUpdateLookupsBucketsAreIdempotent(t *testing.T) {
	c := openTest(t)
	f := &Family{
		Accession: "DF000000001",
		Name:      "MIR",
		Clades:    []int{9606},
		RepeatMasker: RepeatMaskerAnnotation{
			SearchStages: []int{40},
		},
	}
	require.NoError(t, UpdateLookups(c, f))
	require.NoError(t, UpdateLookups(c, f))

	raw, ok, err := c.GetDataset(schema.LookupByNameKey("mir"))
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `["DF000000001"]`, string(raw))

	raw, ok, err = c.GetDataset(schema.LookupByTaxonKey(9606))
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `["DF000000001"]`, string(raw))

	raw, ok, err = c.GetDataset(schema.LookupByStageKey(40))
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `["DF000000001"]`, string(raw))
}

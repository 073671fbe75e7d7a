package emit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/famdb/famdb/pkg/family"
)

func sampleFamily() *family.Family {
	return &family.Family{
		Accession:      "DF000000001",
		Version:        3,
		Curated:        true,
		Name:           "MIR",
		Classification: "root;Interspersed_Repeat;Transposable_Element;SINE;MIR",
		Consensus:      strings.Repeat("ACGT", 20),
		Description:    "Mammalian-wide interspersed repeat",
		Citations: []family.Citation{{
			Authors: "Smit AF, Riggs AD",
			Title:   "MIRs are classic, tRNA-derived SINEs that amplified before the mammalian radiation",
			Journal: "Nucleic Acids Res 23(1), 1995.",
		}},
		RepeatMasker: family.RepeatMaskerAnnotation{
			Type:         "SINE",
			SubType:      "MIR",
			SearchStages: []int{40, 60, 65},
		},
	}
}

func TestSummaryRenderer(t *testing.T) {
	var buf bytes.Buffer
	r, err := Lookup(FormatSummary)
	require.NoError(t, err)
	require.NoError(t, r.Render(&buf, sampleFamily(), Context{}))
	require.Equal(t, "DF000000001.3 'MIR': root;Interspersed_Repeat;Transposable_Element;SINE;MIR len=0\n", buf.String())
}

func TestFastaNameRendererBasicHeader(t *testing.T) {
	var buf bytes.Buffer
	r, err := Lookup(FormatFastaName)
	require.NoError(t, err)
	require.NoError(t, r.Render(&buf, sampleFamily(), Context{}))
	require.True(t, strings.HasPrefix(buf.String(), ">MIR @ [S:40,60,65]\n"))
}

func TestFastaAccClassInNameAndReverseComplement(t *testing.T) {
	var buf bytes.Buffer
	r, err := Lookup(FormatFastaAcc)
	require.NoError(t, err)
	f := sampleFamily()
	f.Consensus = "ACGT"
	require.NoError(t, r.Render(&buf, f, Context{IncludeClassInName: true, ReverseComplement: true}))
	out := buf.String()
	require.Contains(t, out, ">DF000000001.3#SINE/MIR name=MIR @")
	require.Contains(t, out, "_RC")
	require.Contains(t, out, "ACGT")
}

func TestUnknownFormatIsUserError(t *testing.T) {
	_, err := Lookup("bogus")
	require.Error(t, err)
}

func TestReverseComplementPassesThroughAmbiguity(t *testing.T) {
	require.Equal(t, "NNNN", reverseComplement("NNNN"))
	require.Equal(t, "AACGTT", reverseComplement("AACGTT"))
	require.Equal(t, "TTTT", reverseComplement("AAAA"))
}

func TestEMBLEmitParseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	r, err := Lookup(FormatEMBL)
	require.NoError(t, err)

	f := sampleFamily()
	require.NoError(t, r.Render(&buf, f, Context{}))

	got, err := family.ParseEMBL(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, f.Accession, got.Accession)
	require.Equal(t, f.Version, got.Version)
	require.Equal(t, f.Name, got.Name)
	require.Equal(t, f.Consensus, got.Consensus)
	require.Equal(t, f.Citations, got.Citations)
	require.Equal(t, f.RepeatMasker.Type, got.RepeatMasker.Type)
	require.Equal(t, f.RepeatMasker.SubType, got.RepeatMasker.SubType)
	require.Equal(t, f.RepeatMasker.SearchStages, got.RepeatMasker.SearchStages)
}

func TestEMBLSeqOnlyOmitsMetadata(t *testing.T) {
	var buf bytes.Buffer
	r, err := Lookup(FormatEMBLSeq)
	require.NoError(t, err)
	require.NoError(t, r.Render(&buf, sampleFamily(), Context{}))
	out := buf.String()
	require.Contains(t, out, "ID   DF000000001.3")
	require.Contains(t, out, "SQ   Sequence 80 BP;")
	require.NotContains(t, out, "NM   ")
	require.NotContains(t, out, "CC   ")
}

func TestEMBLMetaOnlyOmitsSequence(t *testing.T) {
	var buf bytes.Buffer
	r, err := Lookup(FormatEMBLMeta)
	require.NoError(t, err)
	require.NoError(t, r.Render(&buf, sampleFamily(), Context{}))
	out := buf.String()
	require.Contains(t, out, "NM   MIR")
	require.Contains(t, out, "RN   [1] (bases 1 to 80)")
	require.Contains(t, out, "RA   Smit AF, Riggs AD")
	require.NotContains(t, out, "SQ   ")
}

func TestHMMSpeciesFillsGeneralThresholdsAndDropsTH(t *testing.T) {
	f := sampleFamily()
	f.HMM = &family.HMM{
		Raw: []byte("HMMER3/f [3.1b2]\nNAME  old\nACC   old\nGA    10.0;\nTC    10.0;\nNC    10.0;\nTH    TaxId:9606\n//\n"),
		Thresholds: []family.Threshold{
			{TaxonID: 9606, TaxonName: "Homo sapiens", GA: 21.5, TC: 20.5, NC: 19.5, FDR: 0.01},
		},
	}

	var buf bytes.Buffer
	r, err := Lookup(FormatHMMSpecies)
	require.NoError(t, err)
	require.NoError(t, r.Render(&buf, f, Context{SpeciesID: 9606}))
	out := buf.String()
	require.Contains(t, out, "GA  21.5;")
	require.Contains(t, out, "NAME  MIR")
	require.NotContains(t, out, "TH ")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dblpDumpSample = `<https://dblp.org/rec/conf/nips/VaswaniSPUJGKP17> <https://dblp.org/rdf/schema#title> "Attention is All you Need." .
<https://dblp.org/rec/conf/naacl/DevlinCLT19> <https://dblp.org/rdf/schema#title> "BERT: Pre-training of Deep Bidirectional Transformers for Language Understanding." .
<https://dblp.org/rec/journals/corr/abs-2005-14165> <https://dblp.org/rdf/schema#title> "Language Models are Few-Shot Learners." .
<https://dblp.org/pid/98/7755> <https://dblp.org/rdf/schema#primaryCreatorName> "Ashish Vaswani" .
<https://dblp.org/pid/130/1864> <https://dblp.org/rdf/schema#primaryCreatorName> "Noam Shazeer 0001" .
<https://dblp.org/pid/d/JacobDevlin> <https://dblp.org/rdf/schema#creatorName> "Jacob Devlin" .
<https://dblp.org/rec/conf/nips/VaswaniSPUJGKP17> <https://dblp.org/rdf/schema#authoredBy> <https://dblp.org/pid/98/7755> .
<https://dblp.org/rec/conf/nips/VaswaniSPUJGKP17> <https://dblp.org/rdf/schema#authoredBy> <https://dblp.org/pid/130/1864> .
<https://dblp.org/rec/conf/naacl/DevlinCLT19> <https://dblp.org/rdf/schema#authoredBy> <https://dblp.org/pid/d/JacobDevlin> .
this line is not a triple
# a comment, ignored entirely
`

func writeGzDump(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestBuildDBLP(t *testing.T) {
	dir := t.TempDir()
	dump := writeGzDump(t, dir, "dblp.nt.gz", dblpDumpSample)
	indexPath := filepath.Join(dir, "dblp.db")

	result, err := BuildDBLP(indexPath, dump, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.Records)
	assert.Equal(t, int64(1), result.Skipped)
	assert.False(t, result.UpToDate)
	assert.FileExists(t, indexPath)
	assert.NoFileExists(t, indexPath+".building")

	store, err := Open(indexPath)
	require.NoError(t, err)
	defer store.Close()

	m, err := store.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "dblp", m.SourceName)
	assert.Equal(t, int64(3), m.RecordCount)
	assert.Equal(t, int64(1), m.SkippedCount)
	assert.False(t, m.BuiltAt.IsZero())
	assert.NotEmpty(t, m.SourceChecksum)

	recs, err := store.Lookup("Attention Is All You Need")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	// Disambiguation suffix stripped during the build.
	assert.ElementsMatch(t, []string{"Ashish Vaswani", "Noam Shazeer"}, recs[0].Authors)

	// Publication staged without authorship edges still resolves by title.
	recs, err = store.Lookup("Language Models are Few-Shot Learners")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].Authors)

	// Unknown title finds nothing.
	recs, err = store.Lookup("A Totally Real Paper That Definitely Exists")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestBuildDBLP_SkipsUnchangedDump(t *testing.T) {
	dir := t.TempDir()
	dump := writeGzDump(t, dir, "dblp.nt.gz", dblpDumpSample)
	indexPath := filepath.Join(dir, "dblp.db")

	_, err := BuildDBLP(indexPath, dump, 0, nil)
	require.NoError(t, err)

	result, err := BuildDBLP(indexPath, dump, 0, nil)
	require.NoError(t, err)
	assert.True(t, result.UpToDate)
}

func TestBuildDBLP_BusyWhileReaderOpen(t *testing.T) {
	dir := t.TempDir()
	dump := writeGzDump(t, dir, "dblp.nt.gz", dblpDumpSample)
	indexPath := filepath.Join(dir, "dblp.db")

	_, err := BuildDBLP(indexPath, dump, 0, nil)
	require.NoError(t, err)

	store, err := Open(indexPath)
	require.NoError(t, err)
	defer store.Close()

	other := writeGzDump(t, dir, "dblp2.nt.gz", dblpDumpSample+"\n")
	_, err = BuildDBLP(indexPath, other, 0, nil)
	assert.ErrorIs(t, err, ErrIndexBusy)
}

func TestParseTriple(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantOK  bool
		subject string
		object  string
		isURI   bool
	}{
		{
			name:    "literal object",
			line:    `<https://dblp.org/rec/1> <https://dblp.org/rdf/schema#title> "A Title" .`,
			wantOK:  true,
			subject: "https://dblp.org/rec/1",
			object:  "A Title",
		},
		{
			name:    "uri object",
			line:    `<https://dblp.org/rec/1> <https://dblp.org/rdf/schema#authoredBy> <https://dblp.org/pid/1> .`,
			wantOK:  true,
			subject: "https://dblp.org/rec/1",
			object:  "https://dblp.org/pid/1",
			isURI:   true,
		},
		{
			name:    "escaped quote in literal",
			line:    `<s> <p> "He said \"hi\"" .`,
			wantOK:  true,
			subject: "s",
			object:  `He said "hi"`,
		},
		{
			name:    "typed literal",
			line:    `<s> <p> "2017"^^<http://www.w3.org/2001/XMLSchema#gYear> .`,
			wantOK:  true,
			subject: "s",
			object:  "2017",
		},
		{
			name:    "language tagged literal",
			line:    `<s> <p> "Titel"@de .`,
			wantOK:  true,
			subject: "s",
			object:  "Titel",
		},
		{name: "garbage", line: "not a triple at all", wantOK: false},
		{name: "missing dot", line: `<s> <p> "x"`, wantOK: false},
		{name: "unterminated literal", line: `<s> <p> "x .`, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTriple(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.subject, got.subject)
			assert.Equal(t, tt.object, got.object)
			assert.Equal(t, tt.isURI, got.objectIsURI)
		})
	}
}

func TestStripDBLPSuffix(t *testing.T) {
	assert.Equal(t, "Nuno Santos", StripDBLPSuffix("Nuno Santos 0001"))
	assert.Equal(t, "Wei Wang", StripDBLPSuffix("Wei Wang 0042"))
	assert.Equal(t, "Alice Johnson", StripDBLPSuffix("Alice Johnson"))
	assert.Equal(t, "Name 123", StripDBLPSuffix("Name 123"))
	assert.Equal(t, "Name 12345", StripDBLPSuffix("Name 12345"))
	assert.Equal(t, "Name0001", StripDBLPSuffix("Name0001"))
	assert.Equal(t, "Nuno Santos", StripDBLPSuffix("  Nuno Santos 0001  "))
	assert.Equal(t, "", StripDBLPSuffix(""))
}

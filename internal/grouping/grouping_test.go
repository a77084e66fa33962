package grouping

import (
	"fmt"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maine/dou_bot/internal/gazette"
)

var day = civil.Date{Year: 2026, Month: 10, Day: 17}

func TestKey(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"PORTARIA Nº 100, DE 17 DE OUTUBRO DE 2026", "PORTARIA"},
		{"Portaria nº 101, de 17 de outubro de 2026", "PORTARIA"},
		{"PORTARIA N.º 100, DE 17 DE OUTUBRO DE 2026", "PORTARIA"},
		{"PORTARIA N.° 102, DE 17 DE OUTUBRO DE 2026", "PORTARIA"},
		{"Portaria n.º 103, de 17 de outubro de 2026", "PORTARIA"},
		{"ORDINANCE No. 100, OF 17 OF OCTOBER OF 2026", "ORDINANCE"},
		{"ATO DECLARATÓRIO EXECUTIVO Nº 5, DE 1º DE OUTUBRO", "ATO DECLARATORIO EXECUTIVO"},
		{"SOLUÇÃO DE CONSULTA COSIT Nº 1.234/2026", "SOLUCAO DE CONSULTA COSIT"},
		{"AVISO DE LICITAÇÃO", "AVISO DE LICITACAO"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.title), tt.title)
	}
}

func TestCleanNumber(t *testing.T) {
	for in, want := range map[string]int{"100": 100, "1.234": 1234, " 7 ": 7, "12.345.678": 12345678} {
		got, ok := CleanNumber(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "5/2026", "1-A", "12.34", "abc"} {
		_, ok := CleanNumber(in)
		assert.False(t, ok, in)
	}
}

func TestSort(t *testing.T) {
	docs := []gazette.Document{
		{Title: "B", CanonicalURL: "u1", PublicationDate: day.AddDays(-1)},
		{Title: "B", CanonicalURL: "u3", PublicationDate: day},
		{Title: "A", CanonicalURL: "u2", PublicationDate: day},
		{Title: "B", CanonicalURL: "u2", PublicationDate: day},
	}
	got := Sort(docs)
	var order []string
	for _, d := range got {
		order = append(order, d.Title+"/"+d.CanonicalURL)
	}
	assert.Equal(t, []string{"A/u2", "B/u2", "B/u3", "B/u1"}, order)
	assert.Equal(t, "u1", docs[0].CanonicalURL, "input must not be reordered")
}

func ordinances(from, to int) []gazette.Document {
	var docs []gazette.Document
	// Обратный порядок на входе: группа всё равно упорядочена по номеру.
	for n := to; n >= from; n-- {
		docs = append(docs, gazette.Document{
			Title:           fmt.Sprintf("ORDINANCE No. %d, OF 17 OF OCTOBER OF 2026", n),
			CanonicalURL:    fmt.Sprintf("https://www.in.gov.br/web/dou/-/ordinance-%d-6000000%d", n, n),
			ActType:         gazette.ActOrdinance,
			ActNumber:       fmt.Sprint(n),
			PublicationDate: day,
			Organization:    "Treasury",
		})
	}
	return docs
}

func TestGroup_OrdinancesWithDottedMarker(t *testing.T) {
	var docs []gazette.Document
	for n := 100; n <= 104; n++ {
		docs = append(docs, gazette.Document{
			Title:           fmt.Sprintf("PORTARIA N.º %d, DE 17 DE OUTUBRO DE 2026", n),
			CanonicalURL:    fmt.Sprintf("https://www.in.gov.br/web/dou/-/portaria-n-%d-7000000%d", n, n),
			ActType:         gazette.ActOrdinance,
			ActNumber:       fmt.Sprint(n),
			PublicationDate: day,
		})
	}
	entries := New(3).Group(docs)
	require.Len(t, entries, 1)
	g := entries[0].Group
	require.NotNil(t, g)
	assert.Equal(t, "PORTARIA", g.Key)
	assert.Len(t, g.Members, 5)
	assert.Equal(t, &gazette.NumericRange{Min: 100, Max: 104}, g.Range)
}

func TestGroup_SequentialOrdinances(t *testing.T) {
	entries := New(0).Group(ordinances(100, 106))
	require.Len(t, entries, 1)
	g := entries[0].Group
	require.NotNil(t, g)
	assert.Equal(t, "ORDINANCE", g.Key)
	require.Len(t, g.Members, 7)
	for i, m := range g.Members {
		assert.Equal(t, fmt.Sprint(100+i), m.ActNumber)
	}
	assert.Equal(t, &gazette.NumericRange{Min: 100, Max: 106}, g.Range)
}

func TestGroup_Threshold(t *testing.T) {
	two := New(3).Group(ordinances(1, 2))
	require.Len(t, two, 2)
	assert.False(t, two[0].IsGroup())
	assert.False(t, two[1].IsGroup())

	three := New(3).Group(ordinances(1, 3))
	require.Len(t, three, 1)
	assert.True(t, three[0].IsGroup())
}

func TestGroup_MixedEntriesKeepSortedPositions(t *testing.T) {
	docs := append(ordinances(10, 12),
		gazette.Document{Title: "AVISO", CanonicalURL: "a", PublicationDate: day},
		gazette.Document{Title: "ZETA", CanonicalURL: "z", PublicationDate: day},
		gazette.Document{Title: "EDITAL", CanonicalURL: "e", PublicationDate: day.AddDays(-1)},
	)
	entries := New(3).Group(docs)
	require.Len(t, entries, 4)
	assert.Equal(t, "AVISO", entries[0].Document.Title)
	assert.True(t, entries[1].IsGroup())
	assert.Equal(t, "ZETA", entries[2].Document.Title)
	assert.Equal(t, "EDITAL", entries[3].Document.Title)
}

func TestGroup_NonNumericMembersSortedByTitle(t *testing.T) {
	docs := []gazette.Document{
		{Title: "DESPACHO Nº 5/2026", ActNumber: "5/2026", CanonicalURL: "c", PublicationDate: day},
		{Title: "DESPACHO Nº 3/2026", ActNumber: "3/2026", CanonicalURL: "b", PublicationDate: day},
		{Title: "DESPACHO Nº 4", ActNumber: "4", CanonicalURL: "a", PublicationDate: day},
	}
	entries := New(3).Group(docs)
	require.Len(t, entries, 1)
	g := entries[0].Group
	assert.Nil(t, g.Range)
	assert.Equal(t, []string{"DESPACHO Nº 3/2026", "DESPACHO Nº 4", "DESPACHO Nº 5/2026"},
		[]string{g.Members[0].Title, g.Members[1].Title, g.Members[2].Title})
}

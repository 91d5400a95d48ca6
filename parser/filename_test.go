package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_SingleRegionTag(t *testing.T) {
	p := Parse("Super Mario Bros. (USA).nes")

	assert.Equal(t, "Super Mario Bros.", p.BaseName)
	assert.Equal(t, []string{"USA"}, p.Tags)
	assert.Equal(t, "USA", p.Region)
}

func TestParse_NonGameManual(t *testing.T) {
	p := Parse("Final Fantasy VII (Manual).pdf")

	assert.Equal(t, "Final Fantasy VII", p.BaseName)
	assert.Equal(t, []string{"Manual"}, p.Tags)
	assert.Equal(t, "", p.Region)
}

func TestParse_MultiRegionTag(t *testing.T) {
	p := Parse("Mega Man (USA, Europe).zip")

	assert.Equal(t, []string{"USA, Europe"}, p.Tags)
	assert.Equal(t, "USA, Europe", p.Region)
}

func TestParse_LanguageTagIsNotRegion(t *testing.T) {
	p := Parse("Chrono Trigger (En,Fr,De).smc")

	assert.Equal(t, []string{"En,Fr,De"}, p.Tags)
	assert.Equal(t, "", p.Region)
}

func TestParse_FirstRegionWins(t *testing.T) {
	p := Parse("Some Game (USA)(Rev 1)(Europe).zip")

	assert.Equal(t, "USA", p.Region)
}

func TestParse_BracketTags(t *testing.T) {
	p := Parse("Castlevania [T+Eng1.0_Aeon Genesis].gen")

	assert.Equal(t, []string{"T+Eng1.0_Aeon Genesis"}, p.Tags)
}

func TestParse_BaseNameNeverContainsBrackets(t *testing.T) {
	inputs := []string{
		"Super Mario Bros. (USA).nes",
		"Plain Title.rom",
		"Only [Tag].bin",
	}

	for _, in := range inputs {
		p := Parse(in)
		assert.False(t, strings.ContainsAny(p.BaseName, "([") )
	}
}

func TestParse_NoTagsNoExtension(t *testing.T) {
	p := Parse("readme")

	assert.Equal(t, "readme", p.BaseName)
	assert.Empty(t, p.Tags)
	assert.Equal(t, "", p.Region)
}

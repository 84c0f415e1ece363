package ygl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body>
<div class="property_list">
  <div class="property_item">
    <a class="item_title" href="ygl.is/1">100 Beefcake Rd</a>
    <div class="row">
      <div class="column"> $2,200 </div>
      <div class="column">2 Beds</div>
      <div class="column">2 Baths</div>
      <div class="column">Avail 09/01/2024</div>
    </div>
  </div>
  <div class="property_item">
    <a class="item_title" href="ygl.is/2">12 Lemon St #3</a>
    <div class="column">$4,400</div>
    <div class="column">4 Beds</div>
    <div class="column">1.5 Baths</div>
    <div class="column">Avail 10/15/2024</div>
  </div>
</div>
</body></html>`

const emptyPage = `<html><body><div class="nothing_found">Nothing found</div>
<div class="property_item"><a class="item_title" href="x">ignored</a></div></body></html>`

func TestParseExtractsItemsInOrder(t *testing.T) {
	noResults, items, err := NewParser().Parse(resultsPage)

	require.NoError(t, err)
	assert.False(t, noResults)
	require.Len(t, items, 2)

	assert.Equal(t, "100 Beefcake Rd", items[0].Address)
	assert.Equal(t, "ygl.is/1", items[0].Ref)
	assert.Equal(t, []string{"$2,200", "2 Beds", "2 Baths", "Avail 09/01/2024"}, items[0].Columns)

	assert.Equal(t, "12 Lemon St #3", items[1].Address)
	assert.Equal(t, "1.5 Baths", items[1].Columns[2])
}

func TestParseNoResultsMarkerWins(t *testing.T) {
	noResults, items, err := NewParser().Parse(emptyPage)

	require.NoError(t, err)
	assert.True(t, noResults)
	assert.Empty(t, items, "items are not extracted from a no-results page")
}

func TestParseMalformedPageYieldsNothing(t *testing.T) {
	noResults, items, err := NewParser().Parse("<html><body><p>maintenance</p></body></html>")

	require.NoError(t, err)
	assert.False(t, noResults)
	assert.Empty(t, items)
}

func TestParseItemWithoutTitleKeepsEmptyFields(t *testing.T) {
	page := `<div class="property_item"><div class="column">$1</div></div>`

	_, items, err := NewParser().Parse(page)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Address)
	assert.Empty(t, items[0].Ref)
	assert.Equal(t, []string{"$1"}, items[0].Columns)
}

package census

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acsTable = "\ufeffLabel (Grouping)," +
	`"Block Group 1; Census Tract 4001; Los Angeles County; California!!Estimate",` +
	`"Block Group 1; Census Tract 4001; Los Angeles County; California!!Margin of Error",` +
	`"Block Group 12; Census Tract 4002; Orange County; California!!Estimate",` +
	`"Block Group 2; Census Tract 4002; Orange County; California!!Margin of Error",` +
	`"Total population",` +
	`"ignored",` +
	`"Block Group 3; Census Tract 4003; Los Angeles County; California!!Estimate"` + "\n" +
	`Total:,"1,234",±120,987,±80,5,x,N/A` + "\n" +
	`Second row,1,1,1,1,1,1,1` + "\n"

func TestParseBlockGroups(t *testing.T) {
	groups, err := ParseBlockGroups(strings.NewReader(acsTable))
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, BlockGroup{
		Key: "400101", Tract: "4001", Group: "1",
		County: "Los Angeles", State: "California", Population: 1234,
	}, groups[0])
	assert.Equal(t, "400212", groups[1].Key)
	assert.Equal(t, 987, groups[1].Population)
	assert.Equal(t, "Orange", groups[1].County)
	// Non-numeric estimates count as zero.
	assert.Equal(t, "400303", groups[2].Key)
	assert.Equal(t, 0, groups[2].Population)
}

func TestParseBlockGroups_DuplicateKeyOverwrites(t *testing.T) {
	in := `x,"Block Group 1; Census Tract 10; A County; B!!Estimate",m,"Block Group 1; Census Tract 10; A County; B!!Estimate"` + "\n" +
		"v,5,0,9\n"
	groups, err := ParseBlockGroups(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 9, groups[0].Population)
}

func TestParseBlockGroups_HeaderOnly(t *testing.T) {
	in := `x,"Block Group 1; Census Tract 10; A County; B!!Estimate"` + "\n"
	groups, err := ParseBlockGroups(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 0, groups[0].Population)
}

func TestParseBlockGroups_Empty(t *testing.T) {
	_, err := ParseBlockGroups(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseEstimate(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1,234", 1234},
		{"0", 0},
		{"", 0},
		{"-5", 0},
		{"12.5", 0},
		{"nan", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseEstimate(tt.in), tt.in)
	}
}

func TestWriteBlockGroups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bg_to_pop.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale contents that are longer\n"), 0o644))

	require.NoError(t, WriteBlockGroups(path, []BlockGroup{
		{Key: "400101", Population: 1234},
		{Key: "400212", Population: 0},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Tract_Block_Group,Population\n400101,1234\n400212,0\n", string(data))
}

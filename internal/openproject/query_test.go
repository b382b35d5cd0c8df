package openproject

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryParams_EncodeOrder(t *testing.T) {
	offset, size, sums := 0, 20, true
	params := QueryParams{
		ShowSums: &sums,
		GroupBy:  "status",
		SortBy:   `[["id","asc"]]`,
		Filters:  `[{"status":{"operator":"o","values":[]}}]`,
		PageSize: &size,
		Offset:   &offset,
	}
	encoded := params.Encode()
	require.Equal(t,
		"?offset=0&pageSize=20&filters="+url.QueryEscape(params.Filters)+"&sortBy="+url.QueryEscape(params.SortBy)+"&groupBy=status&showSums=true",
		encoded)

	require.Equal(t, "", QueryParams{}.Encode())
}

func TestAppendFilters_KeepsCallerFiltersOpaque(t *testing.T) {
	existing := `[{"customField3":{"operator":"=","values":["x"]}}]`
	merged, err := AppendFilters(existing, Equals("project", 5))
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"customField3":{"operator":"=","values":["x"]}},
		{"project":{"operator":"=","values":["5"]}}
	]`, merged)

	encoded, err := EncodeFilters(Contains("subject", `say "hi"`))
	require.NoError(t, err)
	require.JSONEq(t, `[{"subject":{"operator":"~","values":["say \"hi\""]}}]`, encoded)

	star, err := EncodeFilters(Filter{Field: "status", Operator: "*"})
	require.NoError(t, err)
	require.JSONEq(t, `[{"status":{"operator":"*","values":[]}}]`, star)

	_, err = AppendFilters(`{"not":"an array"}`, Equals("project", 5))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestQueryParams_WithFiltersLeavesOriginal(t *testing.T) {
	params := QueryParams{Filters: `[]`}
	withProject, err := params.WithFilters(Equals("project", 1))
	require.NoError(t, err)
	require.Equal(t, `[]`, params.Filters)
	require.JSONEq(t, `[{"project":{"operator":"=","values":["1"]}}]`, withProject.Filters)
}

func TestHoursDuration(t *testing.T) {
	got, err := HoursDuration("8.5")
	require.NoError(t, err)
	require.Equal(t, "PT8.5H", got)

	got, err = HoursDuration("pt2h30m")
	require.NoError(t, err)
	require.Equal(t, "PT2H30M", got)

	got, err = HoursDuration(" P1DT4H ")
	require.NoError(t, err)
	require.Equal(t, "P1DT4H", got)

	for _, bad := range []string{"lots", "0", "-2", "NaN", "nan", "Inf", "+Inf", "-inf", "1e400", "P", "PT", "P1DT", "Pgarbage", "PT2X", "P2H"} {
		_, err = HoursDuration(bad)
		require.ErrorIs(t, err, ErrInvalidArgument, bad)
	}
}

package recipe

import (
	"testing"

	"menu-gen-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
)

func quantities(items []common.AggregatedItem) map[string]int {
	out := make(map[string]int)
	for _, item := range items {
		out[item.ItemLabel] = item.Quantity
	}
	return out
}

func TestAggregateSumsAndKeepsFirstSeen(t *testing.T) {
	box := &common.BoundingBox{XMin: 0.1, YMin: 0.2, XMax: 0.3, YMax: 0.4}
	raw := []common.RawDetectedItem{
		{ItemLabel: "Tomato", AdditionalInfo: "cherry", BoundingBox: box, SourceQuantity: 1},
		{ItemLabel: "Onion", SourceQuantity: 2},
		{ItemLabel: "Tomato", AdditionalInfo: "roma", SourceQuantity: 3},
	}

	got := Aggregate(raw)

	assert.Equal(t, []common.AggregatedItem{
		{ItemLabel: "Tomato", AdditionalInfo: "cherry", BoundingBox: box, Quantity: 4},
		{ItemLabel: "Onion", Quantity: 2},
	}, got)
}

func TestAggregateIsOrderIndependentOnSums(t *testing.T) {
	raw := []common.RawDetectedItem{
		{ItemLabel: "Tomato", SourceQuantity: 1},
		{ItemLabel: "Onion", SourceQuantity: 2},
		{ItemLabel: "Tomato", SourceQuantity: 3},
		{ItemLabel: "Egg", SourceQuantity: 6},
	}
	want := quantities(Aggregate(raw))

	permutations := [][]int{{3, 2, 1, 0}, {1, 0, 3, 2}, {2, 3, 0, 1}}
	for _, perm := range permutations {
		shuffled := make([]common.RawDetectedItem, 0, len(raw))
		for _, i := range perm {
			shuffled = append(shuffled, raw[i])
		}
		assert.Equal(t, want, quantities(Aggregate(shuffled)))
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	raw := []common.RawDetectedItem{
		{ItemLabel: "Milk", SourceQuantity: 1},
		{ItemLabel: "Bread", SourceQuantity: 2},
		{ItemLabel: "Milk", SourceQuantity: 1},
	}
	once := Aggregate(raw)
	twice := Aggregate(AsRaw(once))
	assert.Equal(t, once, twice)
}

func TestAggregateDropsBlankLabels(t *testing.T) {
	got := Aggregate([]common.RawDetectedItem{
		{ItemLabel: "", SourceQuantity: 2},
		{ItemLabel: "   ", SourceQuantity: 1},
		{ItemLabel: "Rice", SourceQuantity: 0},
	})
	assert.Equal(t, []common.AggregatedItem{{ItemLabel: "Rice", Quantity: 1}}, got)
}

func TestAggregateIsCaseSensitive(t *testing.T) {
	got := Aggregate([]common.RawDetectedItem{
		{ItemLabel: "tomato", SourceQuantity: 1},
		{ItemLabel: "Tomato", SourceQuantity: 1},
	})
	assert.Len(t, got, 2)
}

func TestManualItems(t *testing.T) {
	six, half, neg := 6.0, 2.7, -3.0
	got := ManualItems([]ManualLabel{
		{ItemLabel: "Egg", Quantity: &six},
		{ItemLabel: "Flour"},
		{ItemLabel: ""},
		{ItemLabel: "Butter", Quantity: &half},
		{ItemLabel: "Salt", Quantity: &neg},
	})

	assert.Equal(t, []common.RawDetectedItem{
		{ItemLabel: "Egg", SourceQuantity: 6},
		{ItemLabel: "Flour", SourceQuantity: 1},
		{ItemLabel: "Butter", SourceQuantity: 2},
		{ItemLabel: "Salt", SourceQuantity: 1},
	}, got)
}

func TestParseDetection(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  map[string]int
	}{
		{
			name:  "fenced json",
			reply: "```json\n{\"detected_items\":[{\"item_label\":\"Apple\",\"quantity\":3},{\"item_label\":\"Milk\"}]}\n```",
			want:  map[string]int{"Apple": 3, "Milk": 1},
		},
		{
			name:  "string and non-positive quantities",
			reply: `{"detected_items":[{"item_label":"Egg","quantity":"12"},{"item_label":"Lime","quantity":0},{"item_label":"Kiwi","quantity":"some"}]}`,
			want:  map[string]int{"Egg": 12, "Lime": 1, "Kiwi": 1},
		},
		{
			name:  "blank label dropped",
			reply: `{"detected_items":[{"item_label":"  ","quantity":2},{"item_label":"Bun","quantity":4}]}`,
			want:  map[string]int{"Bun": 4},
		},
		{name: "not json", reply: "I see a banana.", want: map[string]int{}},
		{name: "empty", reply: "", want: map[string]int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := ParseDetection(tt.reply)
			got := make(map[string]int)
			for _, item := range items {
				got[item.ItemLabel] = item.SourceQuantity
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDetectionKeepsBoundingBox(t *testing.T) {
	items := ParseDetection(`{"detected_items":[{"item_label":"Apple","quantity":1,"bounding_box":{"x_min":0.1,"y_min":0.2,"x_max":0.5,"y_max":0.6},"extracted_text":"Fuji"}]}`)
	if assert.Len(t, items, 1) {
		assert.Equal(t, &common.BoundingBox{XMin: 0.1, YMin: 0.2, XMax: 0.5, YMax: 0.6}, items[0].BoundingBox)
		assert.Equal(t, "Fuji", items[0].ExtractedText)
	}
}

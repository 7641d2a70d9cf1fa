package hotspot

import "github.com/shopspring/decimal"

var (
	hotFee      = decimal.RequireFromString("4.00")
	otherFeeMin = decimal.RequireFromString("7.99")
)

var freeItemOptions = map[string][]string{
	"Chipotle":       {"Free chips & guac", "Free side of queso", "Free drink", "Buy one get one free"},
	"McDonald's":     {"Free medium fries", "Free apple pie", "Free McFlurry", "Free hash brown"},
	"Chick-fil-A":    {"Free cookie", "Free waffle fries", "Free drink", "Free brownie"},
	"Portillo's":     {"Free cheese fries", "Free chocolate cake", "Free drink", "Free onion rings"},
	"Starbucks":      {"Free cookie", "Free cake pop", "Free bakery item", "Free upsize"},
	"Raising Cane's": {"Free Texas toast", "Free coleslaw", "Free sauce", "Free drink"},
	"Subway":         {"Free cookie", "Free chips", "Free drink", "Free 6-inch sub"},
	"Panda Express":  {"Free eggroll", "Free rangoon", "Free drink", "Free side"},
	"Five Guys":      {"Free small fries", "Free drink", "Free peanuts", "Free bacon topping"},
}

func defaultHot() []Restaurant {
	return []Restaurant{
		{Name: "Chipotle", Fee: hotFee, Orders: 5, Fixed: true},
		{Name: "McDonald's", Fee: hotFee, Orders: 6, Fixed: true},
		{Name: "Chick-fil-A", Fee: hotFee, Orders: 5, Fixed: true},
		{Name: "Portillo's", Fee: hotFee, Orders: 5},
		{Name: "Starbucks", Fee: hotFee, Orders: 6},
	}
}

func defaultOthers() []Restaurant {
	return []Restaurant{
		{Name: "Raising Cane's", Fee: decimal.RequireFromString("7.99")},
		{Name: "Subway", Fee: decimal.RequireFromString("8.99")},
		{Name: "Panda Express", Fee: decimal.RequireFromString("7.49")},
		{Name: "Five Guys", Fee: decimal.RequireFromString("9.99")},
	}
}

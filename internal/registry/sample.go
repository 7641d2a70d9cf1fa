package registry

import "github.com/shopspring/decimal"

type sampleMenu struct {
	name  string
	path  string
	items []MenuItem
}

func item(name, description, price, category string) MenuItem {
	return MenuItem{ItemName: name, Description: description, Price: decimal.RequireFromString(price), Category: category}
}

var sampleMenus = []sampleMenu{
	{
		name: "Chipotle",
		path: "/menus/chipotle.pdf",
		items: []MenuItem{
			item("Burrito Bowl", "Rice, beans, protein, and toppings of your choice", "9.95", "Entrees"),
			item("Burrito", "Flour tortilla filled with rice, beans, protein, and toppings", "9.95", "Entrees"),
			item("Tacos", "Three soft or hard shell tacos with your choice of fillings", "9.95", "Entrees"),
			item("Guacamole", "Fresh avocado, lime, cilantro", "2.45", "Sides"),
			item("Chips", "Freshly fried and seasoned with lime and salt", "1.95", "Sides"),
		},
	},
	{
		name: "Starbucks",
		path: "/menus/starbucks.pdf",
		items: []MenuItem{
			item("Caramel Macchiato", "Espresso with vanilla syrup, milk and caramel drizzle", "4.95", "Hot Drinks"),
			item("Iced Coffee", "Cold brewed coffee served over ice", "3.45", "Cold Drinks"),
			item("Chocolate Croissant", "Buttery croissant with chocolate pieces", "3.25", "Bakery"),
			item("Bacon & Gouda Sandwich", "Bacon and gouda cheese on an artisan roll", "4.75", "Food"),
		},
	},
	{
		name: "Subway",
		path: "/menus/subway.pdf",
		items: []MenuItem{
			item("Italian BMT", "Genoa salami, spicy pepperoni, and Black Forest ham", "6.99", "Footlong"),
			item("Turkey Breast", "Sliced turkey breast with your choice of toppings", "6.79", "Footlong"),
			item("Veggie Delite", "Lettuce, tomatoes, green peppers, cucumbers, and onions", "5.99", "Footlong"),
			item("Chocolate Chip Cookie", "Freshly baked chocolate chip cookie", "0.99", "Sides"),
		},
	},
}

func fallbackMenus() []Menu {
	return []Menu{
		{ID: 1, RestaurantName: "Chipotle", MenuPath: "/menus/chipotle.pdf"},
		{ID: 2, RestaurantName: "Starbucks", MenuPath: "/menus/starbucks.pdf"},
		{ID: 3, RestaurantName: "Subway", MenuPath: "/menus/subway.pdf"},
	}
}

package service

import "github.com/Morsalin012/sushi-cafe-web/internal/core/domain"

func defaultMenu() []domain.Product {
	item := func(name, desc string, cat domain.Category, price int64, stock, prep int, tags ...string) domain.Product {
		return domain.Product{
			Name: name, Description: desc, Category: cat, Price: price,
			Stock: stock, PreparationTime: prep, Tags: tags, IsAvailable: true,
		}
	}
	veg := func(p domain.Product) domain.Product { p.IsVegetarian = true; return p }
	featured := func(p domain.Product) domain.Product { p.IsFeatured = true; return p }
	spicy := func(p domain.Product) domain.Product { p.IsSpicy = true; return p }

	return []domain.Product{
		featured(item("Tuna Nigiri", "Premium A-grade tuna slices on seasoned sushi rice.", domain.CategorySushi, 420, 50, 10, "Chef's Pick", "Premium")),
		item("Salmon Nigiri", "Fresh Atlantic salmon on seasoned rice, served with wasabi and ginger.", domain.CategorySushi, 380, 50, 10, "Popular"),
		featured(item("Sashimi Platter", "Assortment of sashimi selected by our chef, ideal for sharing.", domain.CategorySushi, 1150, 30, 20, "Sharing", "Premium")),

		featured(item("Dragon Roll", "Eel, avocado and cucumber topped with sweet glaze and sesame.", domain.CategoryRolls, 520, 40, 15, "Popular", "Signature")),
		spicy(item("Spicy Tuna Roll", "Hand-rolled with chili mayo and scallions.", domain.CategoryRolls, 380, 50, 12, "Spicy", "Popular")),
		veg(item("Yasai Roll (Vegetarian)", "Seasonal vegetables, avocado and sesame.", domain.CategoryRolls, 320, 45, 12, "Vegetarian", "Healthy")),
		item("Crunch Roll", "Tempura crunch, cucumber and house special sauce.", domain.CategoryRolls, 390, 40, 15, "Crispy"),
		featured(item("Rainbow Roll", "California roll topped with assorted fresh fish and avocado slices.", domain.CategoryRolls, 580, 35, 18, "Premium", "Colorful")),

		veg(item("Cappuccino", "Rich espresso balanced with silky steamed milk and microfoam.", domain.CategoryCoffee, 220, 100, 5, "Classic")),
		veg(item("Mocha Latte", "Chocolatey, bittersweet and smooth.", domain.CategoryCoffee, 260, 100, 5, "Sweet", "Popular")),
		featured(veg(item("Matcha Latte", "Stone-ground matcha whisked to order with steamed milk.", domain.CategoryCoffee, 240, 100, 5, "Japanese", "Healthy"))),
		veg(item("Espresso", "Single shot of our house blend espresso.", domain.CategoryCoffee, 150, 100, 3, "Classic", "Strong")),
		veg(item("Iced Caramel Latte", "Espresso with creamy milk and caramel over ice.", domain.CategoryCoffee, 280, 100, 5, "Iced", "Sweet")),

		featured(veg(item("Sakura Mochi", "Sweet rice cake wrapped in salted cherry leaf.", domain.CategoryDesserts, 150, 60, 2, "Japanese", "Seasonal"))),
		veg(item("Matcha Cheesecake", "Creamy cheesecake with matcha infusion.", domain.CategoryDesserts, 280, 40, 2, "Japanese", "Popular")),
		veg(item("Dorayaki", "Japanese pancakes filled with sweet red bean paste.", domain.CategoryDesserts, 180, 50, 5, "Japanese", "Classic")),
		veg(item("Black Sesame Ice Cream", "Nutty, creamy ice cream topped with sesame seeds.", domain.CategoryDesserts, 200, 45, 2, "Japanese", "Unique")),

		veg(item("Yuzu Lemonade", "Citrus drink with Japanese yuzu and sparkling water.", domain.CategoryDrinks, 180, 80, 3, "Refreshing", "Japanese")),
		veg(item("Japanese Green Tea", "Premium sencha green tea, served hot or iced.", domain.CategoryDrinks, 120, 100, 3, "Traditional", "Healthy")),
		veg(item("Ramune Soda", "Classic Japanese marble soda in original flavor.", domain.CategoryDrinks, 150, 60, 1, "Japanese", "Fun")),

		featured(item("Omakase Box (Chef's Choice)", "Eight pieces of the day's nigiri and a signature roll.", domain.CategorySpecials, 1500, 20, 25, "Chef's Special", "Premium", "Limited")),
		item("Weekend Brunch Set", "Assorted sushi, miso soup, salad and coffee or matcha.", domain.CategorySpecials, 850, 30, 20, "Set Menu", "Value"),
	}
}

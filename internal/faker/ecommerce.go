package faker

var productCategories = []string{
	"Electronics", "Clothing", "Home & Kitchen", "Books", "Beauty",
	"Sports", "Toys", "Automotive", "Health", "Pet Supplies",
}

var productAdjectives = []string{
	"Premium", "Deluxe", "Essential", "Professional", "Ultra",
	"Smart", "Portable", "Wireless", "Digital", "Organic",
	"Vintage", "Modern", "Lightweight", "Durable", "Advanced",
}

var productTypes = map[string][]string{
	"Electronics": {
		"Headphones", "Smartphone", "Laptop", "Tablet", "Camera",
		"Smartwatch", "Speaker", "TV", "Monitor", "Mouse", "Keyboard",
	},
	"Clothing": {
		"T-Shirt", "Jeans", "Dress", "Jacket", "Sweater", "Socks",
		"Hat", "Scarf", "Gloves", "Shoes", "Sneakers",
	},
	"Home & Kitchen": {
		"Blender", "Coffee Maker", "Toaster", "Microwave", "Sofa",
		"Bed", "Table", "Chair", "Lamp", "Pillow", "Blanket",
	},
	"Books": {
		"Novel", "Cookbook", "Biography", "Textbook", "Guide",
		"History Book", "Dictionary", "Comic Book", "Magazine", "Journal",
	},
	"Beauty": {
		"Lipstick", "Foundation", "Mascara", "Moisturizer", "Shampoo",
		"Conditioner", "Body Wash", "Face Mask", "Perfume",
	},
	"Sports": {
		"Yoga Mat", "Dumbbells", "Tennis Racket", "Basketball", "Football",
		"Baseball Glove", "Bicycle", "Skateboard", "Running Shoes",
	},
	"Toys": {
		"Action Figure", "Doll", "Board Game", "Puzzle", "Plush Toy",
		"Remote Control Car", "Building Blocks", "Art Set",
	},
	"Automotive": {
		"Car Seat", "Windshield Wipers", "Floor Mats", "Car Charger",
		"Jump Starter", "Tool Kit", "Air Freshener",
	},
	"Health": {
		"Vitamins", "Supplements", "First Aid Kit", "Thermometer",
		"Blood Pressure Monitor", "Heating Pad", "Massager",
	},
	"Pet Supplies": {
		"Dog Food", "Cat Litter", "Pet Bed", "Pet Toy", "Pet Carrier",
		"Leash", "Collar", "Pet Shampoo",
	},
}

// productName builds names like "Wireless Headphones" or, three times in
// ten, "Wireless Electronics Headphones".
func (p *Provider) productName() string {
	category := productCategories[p.r.Intn(len(productCategories))]
	adjective := productAdjectives[p.r.Intn(len(productAdjectives))]
	kinds := productTypes[category]
	kind := kinds[p.r.Intn(len(kinds))]
	if p.r.Float64() < 0.3 {
		return adjective + " " + category + " " + kind
	}
	return adjective + " " + kind
}

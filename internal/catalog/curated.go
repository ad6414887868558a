package catalog

import "github.com/hanko-field/ordersim/internal/domain"

type curatedProduct struct {
	name        string
	price       float64
	sku         string
	vendor      string
	productType string
	popularity  float64
	trend       domain.TrendClass
}

var curatedProducts = []curatedProduct{
	{"LEGO Classic Creative Bricks", 29.99, "TOY-LEGO-001", "LEGO Group", "Building Set", 0.95, domain.TrendStable},
	{"Barbie Dreamhouse Playset", 199.99, "TOY-BARB-001", "Mattel", "Doll", 0.85, domain.TrendGrowing},
	{"Hot Wheels Track Builder", 34.99, "TOY-HW-001", "Mattel", "Vehicle", 0.90, domain.TrendStable},
	{"Monopoly Board Game", 24.99, "TOY-MONO-001", "Hasbro", "Board Game", 0.88, domain.TrendStable},
	{"Nerf Elite Blaster", 19.99, "TOY-NERF-001", "Hasbro", "Outdoor Toy", 0.92, domain.TrendGrowing},
	{"Play-Doh Creative Set", 15.99, "TOY-PD-001", "Hasbro", "Art Supplies", 0.89, domain.TrendStable},
	{"Fisher-Price Rock-a-Stack", 8.99, "TOY-FP-001", "Fisher-Price", "Educational Toy", 0.75, domain.TrendDeclining},
	{"Crayola Art Supplies Kit", 22.99, "TOY-CRAY-001", "Crayola", "Art Supplies", 0.82, domain.TrendStable},
	{"Rubik's Cube Classic", 12.99, "TOY-RUB-001", "Spin Master", "Puzzle", 0.70, domain.TrendVolatile},
	{"Transformers Action Figure", 29.99, "TOY-TRANS-001", "Hasbro", "Action Figure", 0.78, domain.TrendStable},
	{"Pokémon Trading Cards", 4.99, "TOY-POKE-001", "Pokémon Company", "Card Game", 0.95, domain.TrendGrowing},
	{"My Little Pony Figure", 16.99, "TOY-MLP-001", "Hasbro", "Action Figure", 0.72, domain.TrendDeclining},
	{"Thomas & Friends Train Set", 39.99, "TOY-THOMAS-001", "Mattel", "Vehicle", 0.68, domain.TrendDeclining},
	{"Minecraft Building Set", 44.99, "TOY-MC-001", "LEGO Group", "Building Set", 0.87, domain.TrendGrowing},
	{"Scrabble Junior", 19.99, "TOY-SCRAB-001", "Hasbro", "Board Game", 0.60, domain.TrendStable},
	{"UNO Card Game", 7.99, "TOY-UNO-001", "Mattel", "Card Game", 0.85, domain.TrendStable},
	{"Jenga Classic Game", 9.99, "TOY-JENGA-001", "Hasbro", "Board Game", 0.80, domain.TrendStable},
	{"Peppa Pig Playhouse", 54.99, "TOY-PEPPA-001", "Character Options", "Doll", 0.65, domain.TrendDeclining},
	{"Disney Princess Doll", 24.99, "TOY-DISNEY-001", "Mattel", "Doll", 0.83, domain.TrendStable},
	{"Spider-Man Action Figure", 18.99, "TOY-SPIDER-001", "Hasbro", "Action Figure", 0.86, domain.TrendGrowing},
	{"Frozen Elsa Dress-Up", 32.99, "TOY-FROZEN-001", "Disney", "Dress-Up", 0.81, domain.TrendDeclining},
	{"Cars Lightning McQueen", 21.99, "TOY-CARS-001", "Mattel", "Vehicle", 0.77, domain.TrendStable},
	{"Paw Patrol Rescue Vehicle", 26.99, "TOY-PAW-001", "Spin Master", "Vehicle", 0.84, domain.TrendGrowing},
	{"Baby Alive Interactive Doll", 49.99, "TOY-BABY-001", "Hasbro", "Electronic Toy", 0.69, domain.TrendStable},
	{"Magic 8 Ball", 11.99, "TOY-MAGIC-001", "Mattel", "Puzzle", 0.55, domain.TrendStable},
	{"Slinky Original", 5.99, "TOY-SLINK-001", "Poof Slinky", "Outdoor Toy", 0.58, domain.TrendDeclining},
	{"Connect 4 Game", 14.99, "TOY-CON4-001", "Hasbro", "Board Game", 0.74, domain.TrendStable},
	{"Operation Board Game", 16.99, "TOY-OP-001", "Hasbro", "Board Game", 0.67, domain.TrendStable},
	{"Risk Strategy Game", 39.99, "TOY-RISK-001", "Hasbro", "Board Game", 0.52, domain.TrendStable},
	{"Clue Mystery Game", 19.99, "TOY-CLUE-001", "Hasbro", "Board Game", 0.63, domain.TrendStable},
	{"Yahtzee Dice Game", 8.99, "TOY-YAH-001", "Hasbro", "Board Game", 0.71, domain.TrendStable},
	{"Twister Floor Game", 12.99, "TOY-TWIST-001", "Hasbro", "Outdoor Toy", 0.76, domain.TrendStable},
	{"Sorry! Board Game", 17.99, "TOY-SORRY-001", "Hasbro", "Board Game", 0.59, domain.TrendDeclining},
	{"Trouble Pop-O-Matic", 13.99, "TOY-TROUB-001", "Hasbro", "Board Game", 0.61, domain.TrendStable},
	{"Guess Who? Game", 11.99, "TOY-GUESS-001", "Hasbro", "Board Game", 0.66, domain.TrendStable},
	{"Battleship Strategy Game", 18.99, "TOY-BATTLE-001", "Hasbro", "Board Game", 0.64, domain.TrendStable},
	{"Candy Land Adventure", 9.99, "TOY-CANDY-001", "Hasbro", "Board Game", 0.79, domain.TrendStable},
	{"Chutes and Ladders", 8.99, "TOY-CHUTES-001", "Hasbro", "Board Game", 0.73, domain.TrendStable},
	{"LEGO Friends Heartlake City", 89.99, "TOY-LEGO-002", "LEGO Group", "Building Set", 0.75, domain.TrendGrowing},
	{"LEGO Technic Race Car", 69.99, "TOY-LEGO-003", "LEGO Group", "Building Set", 0.68, domain.TrendGrowing},
	{"K'NEX Building Set", 24.99, "TOY-KNEX-001", "K'NEX", "Building Set", 0.48, domain.TrendDeclining},
	{"Lincoln Logs Cabin", 29.99, "TOY-LINC-001", "K'NEX", "Building Set", 0.54, domain.TrendDeclining},
	{"Tinker Toys Classic Set", 19.99, "TOY-TINK-001", "K'NEX", "Building Set", 0.51, domain.TrendDeclining},
	{"Magna-Tiles Clear Colors", 49.99, "TOY-MAGNA-001", "Magna-Tiles", "Educational Toy", 0.70, domain.TrendGrowing},
	{"Playmobil Pirate Ship", 79.99, "TOY-PLAY-001", "Playmobil", "Vehicle", 0.56, domain.TrendStable},
	{"Calico Critters Family", 34.99, "TOY-CALI-001", "Epoch Everlasting Play", "Plush Toy", 0.62, domain.TrendStable},
	{"Shopkins Mini Figures", 6.99, "TOY-SHOP-001", "Moose Toys", "Action Figure", 0.73, domain.TrendDeclining},
	{"LOL Surprise Dolls", 9.99, "TOY-LOL-001", "MGA Entertainment", "Doll", 0.88, domain.TrendVolatile},
	{"Hatchimals Surprise Egg", 59.99, "TOY-HATCH-001", "Spin Master", "Electronic Toy", 0.67, domain.TrendDeclining},
	{"Fidget Spinner Classic", 3.99, "TOY-FIDG-001", "Various", "Outdoor Toy", 0.45, domain.TrendDeclining},
}

var generatedVendors = []string{
	"Hasbro", "Mattel", "LEGO Group", "Fisher-Price", "Spin Master", "Disney", "Crayola", "K'NEX", "Playmobil", "Various",
}

var generatedProductTypes = []string{
	"Building Set", "Action Figure", "Doll", "Board Game", "Card Game", "Puzzle", "Art Supplies",
	"Educational Toy", "Electronic Toy", "Outdoor Toy", "Vehicle", "Plush Toy", "Dress-Up", "Musical Toy",
}

// CuratedSize is the number of hand-maintained products available before synthetic ones are generated.
func CuratedSize() int {
	return len(curatedProducts)
}

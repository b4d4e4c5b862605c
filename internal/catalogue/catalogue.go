package catalogue

// Product is a catalogue entry. Prices are integer cents, TTC.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PriceCents    int      `json:"price_cents"`
	ShippingCents int      `json:"shipping_cents"`
	Image         string   `json:"image"`
	Active        bool     `json:"active"`
	WeightGrams   int      `json:"weight_grams,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	StockQuantity *int     `json:"stock_quantity,omitempty"`
}

func stock(n int) *int { return &n }

// catalogue is the static in-code product list. Shipping rates follow
// La Poste per-unit pricing.
var catalogue = []Product{
	{
		ID:            "mug-love-symbol",
		Name:          "Mug Love Symbol Edition",
		Description:   "Mug en céramique premium avec motif Love Symbol. Capacité 350ml, compatible lave-vaisselle et micro-ondes.",
		PriceCents:    1400,
		ShippingCents: 450,
		Image:         "https://placehold.co/600x750/503B64/F3EFEA?text=Mug+Love+Symbol&font=playfair-display",
		Active:        true,
		WeightGrams:   380,
		Tags:          []string{"vaisselle", "collection", "nouveau"},
		StockQuantity: stock(45),
	},
	{
		ID:            "tote-bag-heritage",
		Name:          "Tote Bag Héritage 1885",
		Description:   "Sac en coton bio premium avec sérigraphie vintage. Dimensions généreuses : 40x45cm. Anses renforcées.",
		PriceCents:    1800,
		ShippingCents: 450,
		Image:         "https://placehold.co/600x750/F3EFEA/503B64?text=Tote+Heritage&font=playfair-display",
		Active:        true,
		WeightGrams:   140,
		Tags:          []string{"textile", "eco-friendly", "best-seller"},
		StockQuantity: stock(35),
	},
	{
		ID:            "stickers-vibrant-pack",
		Name:          "Collection Stickers Vibrant",
		Description:   "Set de 8 stickers aux finitions holographiques. Design exclusif Love Symbol. Résistants à l'eau et aux UV.",
		PriceCents:    700,
		ShippingCents: 200,
		Image:         "https://placehold.co/600x750/826E96/F3EFEA?text=Stickers+Vibrant&font=playfair-display",
		Active:        true,
		WeightGrams:   25,
		Tags:          []string{"papeterie", "nouveau"},
		StockQuantity: stock(120),
	},
	{
		ID:            "carnet-edition-1885",
		Name:          "Carnet Édition 1885",
		Description:   "Carnet de notes premium avec couverture gaufrée Love Symbol. Papier 120g, format A5, 192 pages numérotées.",
		PriceCents:    2200,
		ShippingCents: 450,
		Image:         "https://placehold.co/600x750/503B64/F3EFEA?text=Carnet+1885&font=playfair-display",
		Active:        true,
		WeightGrams:   320,
		Tags:          []string{"papeterie", "collection", "nouveau", "best-seller"},
		StockQuantity: stock(50),
	},
	{
		ID:            "pin-love-symbol",
		Name:          "Pin's Love Symbol",
		Description:   "Pin's émaillé haut de gamme avec finition brillante. Attache papillon dorée. Diamètre 3cm.",
		PriceCents:    900,
		ShippingCents: 200,
		Image:         "https://placehold.co/600x750/A091AF/503B64?text=Pins+Love&font=playfair-display",
		Active:        true,
		WeightGrams:   15,
		Tags:          []string{"accessoires", "nouveau", "best-seller"},
		StockQuantity: stock(80),
	},
	{
		ID:            "affiche-heritage",
		Name:          "Affiche Héritage 1885",
		Description:   "Affiche d'art exclusive sur papier mat 250g. Format A3 (29,7 x 42 cm). Design vintage revisité.",
		PriceCents:    2500,
		ShippingCents: 450,
		Image:         "https://placehold.co/600x750/F3EFEA/503B64?text=Affiche+1885&font=playfair-display",
		Active:        true,
		WeightGrams:   180,
		Tags:          []string{"decoration", "collection"},
		StockQuantity: stock(25),
	},
	{
		ID:            "sweat-love-edition",
		Name:          "Sweat Love Edition",
		Description:   "Sweat-shirt brodé 100% coton bio. Coupe unisexe confortable. Broderie premium poitrine.",
		PriceCents:    4500,
		ShippingCents: 600,
		Image:         "https://placehold.co/600x750/503B64/F3EFEA?text=Sweat+Love&font=playfair-display",
		Active:        true,
		WeightGrams:   420,
		Tags:          []string{"textile", "collection", "nouveau"},
		StockQuantity: stock(30),
	},
	{
		ID:            "gourde-inox-1885",
		Name:          "Gourde Inox 1885",
		Description:   "Gourde isotherme en inox 500ml. Garde le froid 24h et le chaud 12h. Design gravé laser.",
		PriceCents:    2800,
		ShippingCents: 600,
		Image:         "https://placehold.co/600x750/826E96/F3EFEA?text=Gourde+Inox&font=playfair-display",
		Active:        true,
		WeightGrams:   280,
		Tags:          []string{"vaisselle", "eco-friendly", "best-seller"},
		StockQuantity: stock(40),
	},
	{
		ID:            "badges-collection",
		Name:          "Collection Badges Vintage",
		Description:   "Set de 6 badges vintage 56mm. Designs rétro inspirés des archives municipales de 1885.",
		PriceCents:    1200,
		ShippingCents: 200,
		Image:         "https://placehold.co/600x750/F3EFEA/503B64?text=Badges+Vintage&font=playfair-display",
		Active:        true,
		WeightGrams:   40,
		Tags:          []string{"accessoires", "collection"},
		StockQuantity: stock(60),
	},
	{
		ID:            "trousse-heritage",
		Name:          "Trousse Héritage",
		Description:   "Trousse en toile cirée avec fermeture éclair dorée. Doublure intérieure Love Symbol. 20x12cm.",
		PriceCents:    1600,
		ShippingCents: 450,
		Image:         "https://placehold.co/600x750/503B64/F3EFEA?text=Trousse+Heritage&font=playfair-display",
		Active:        true,
		WeightGrams:   90,
		Tags:          []string{"accessoires", "nouveau"},
		StockQuantity: stock(35),
	},
}

// Lookup returns the active product with the given id.
func Lookup(id string) (Product, bool) {
	for _, p := range catalogue {
		if p.ID == id && p.Active {
			return p, true
		}
	}
	return Product{}, false
}

// Active returns every active product in catalogue order.
func Active() []Product {
	out := make([]Product, 0, len(catalogue))
	for _, p := range catalogue {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

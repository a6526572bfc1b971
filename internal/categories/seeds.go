// Package categories holds the default category taxonomy, the mapping of
// legacy category values, and validation of the category forest.
package categories

import (
	"fmt"

	"github.com/dvloznov/ledgr/internal/domain"
)

// Seed is a default category. ParentValue refers to another seed's Value.
type Seed struct {
	Value               string
	Name                string
	IconName            string
	Color               string
	Emoji               string
	ParentValue         string
	ExcludeFromCashFlow bool
}

// SpecialSeeds have no parent and are handled specially by the ledger.
var SpecialSeeds = []Seed{
	{Value: "untagged", Name: "Untagged", IconName: "FileQuestion", Color: "hsl(var(--neutral-400))", Emoji: "❓"},
	{Value: "self_transfer", Name: "Self Transfer", IconName: "TrendingUp", Color: "hsl(var(--neutral-500))", Emoji: "🔄", ExcludeFromCashFlow: true},
	{Value: "credit_card_payment", Name: "Credit Card Payment", IconName: "CreditCard", Color: "hsl(var(--stone-200))", Emoji: "💳", ExcludeFromCashFlow: true},
}

// SuperSeeds are the top-level groupings.
var SuperSeeds = []Seed{
	{Value: "food_and_dining", Name: "Food & Dining", IconName: "Utensils", Color: "hsl(var(--yellow-200))", Emoji: "🍽️"},
	{Value: "entertainment", Name: "Entertainment", IconName: "Popcorn", Color: "hsl(var(--pink-300))", Emoji: "🎬"},
	{Value: "transportation", Name: "Transportation", IconName: "Car", Color: "hsl(var(--purple-200))", Emoji: "🚗"},
	{Value: "shopping", Name: "Shopping", IconName: "ShoppingBag", Color: "hsl(var(--green-300))", Emoji: "🛍️"},
	{Value: "health_and_wellness", Name: "Health & Wellness", IconName: "HeartPulse", Color: "hsl(var(--rose-400))", Emoji: "❤️"},
	{Value: "housing", Name: "Housing", IconName: "Home", Color: "hsl(var(--blue-200))", Emoji: "🏠"},
	{Value: "utilities", Name: "Utilities", IconName: "Lightbulb", Color: "hsl(var(--yellow-400))", Emoji: "💡"},
	{Value: "travel", Name: "Travel", IconName: "Plane", Color: "hsl(var(--rose-500))", Emoji: "✈️"},
	{Value: "education", Name: "Education", IconName: "GraduationCap", Color: "hsl(var(--indigo-500))", Emoji: "🎓"},
	{Value: "finance", Name: "Finance & Insurance", IconName: "ReceiptIndianRupee", Color: "hsl(var(--purple-400))", Emoji: "💰"},
	{Value: "personal_care", Name: "Personal Care", IconName: "HeartPulse", Color: "hsl(var(--teal-500))", Emoji: "💆"},
	{Value: "family", Name: "Family", IconName: "PawPrint", Color: "hsl(var(--sky-600))", Emoji: "👨‍👩‍👧"},
	{Value: "gifts_and_donations", Name: "Gifts & Donations", IconName: "Gift", Color: "hsl(var(--rose-500))", Emoji: "🎁"},
	{Value: "taxes", Name: "Taxes", IconName: "ReceiptIndianRupee", Color: "hsl(var(--fuchsia-700))", Emoji: "🧾"},
	{Value: "investments", Name: "Investments", IconName: "TrendingUp", Color: "hsl(var(--indigo-700))", Emoji: "📈", ExcludeFromCashFlow: true},
	{Value: "business_expenses", Name: "Business Expenses", IconName: "Briefcase", Color: "hsl(var(--purple-600))", Emoji: "💼"},
	{Value: "subscriptions_and_memberships", Name: "Subscriptions & Memberships", IconName: "Dumbbell", Color: "hsl(var(--lime-800))", Emoji: "📱"},
}

// SubSeeds are leaf categories, grouped by parent.
var SubSeeds = []Seed{
	{Value: "groceries", Name: "Groceries", IconName: "ShoppingBag", Color: "hsl(var(--green-200))", Emoji: "🛒", ParentValue: "food_and_dining"},
	{Value: "restaurants", Name: "Restaurants", IconName: "Utensils", Color: "hsl(var(--yellow-200))", Emoji: "🍽️", ParentValue: "food_and_dining"},
	{Value: "cafes", Name: "Cafes", IconName: "Carrot", Color: "hsl(var(--amber-200))", Emoji: "☕", ParentValue: "food_and_dining"},
	{Value: "alcohol_and_bars", Name: "Alcohol & Bars", IconName: "Wine", Color: "hsl(var(--orange-300))", Emoji: "🍻", ParentValue: "food_and_dining"},
	{Value: "food_delivery", Name: "Food Delivery", IconName: "Bike", Color: "hsl(var(--yellow-300))", Emoji: "🛵", ParentValue: "food_and_dining"},

	{Value: "movies", Name: "Movies", IconName: "Popcorn", Color: "hsl(var(--pink-300))", Emoji: "🎬", ParentValue: "entertainment"},
	{Value: "concerts_and_events", Name: "Concerts & Events", IconName: "HeartPulse", Color: "hsl(var(--fuchsia-300))", Emoji: "🎤", ParentValue: "entertainment"},
	{Value: "gaming", Name: "Gaming", IconName: "Gamepad", Color: "hsl(var(--lime-300))", Emoji: "🎮", ParentValue: "entertainment"},
	{Value: "nightlife", Name: "Nightlife", IconName: "Moon", Color: "hsl(var(--rose-300))", Emoji: "🌃", ParentValue: "entertainment"},
	{Value: "streaming_services", Name: "Streaming Services", IconName: "Tv", Color: "hsl(var(--sky-300))", Emoji: "🍿", ParentValue: "entertainment"},

	{Value: "public_transport", Name: "Public Transport", IconName: "Bus", Color: "hsl(var(--purple-200))", Emoji: "🚇", ParentValue: "transportation"},
	{Value: "ride_sharing", Name: "Ride Sharing", IconName: "Car", Color: "hsl(var(--violet-200))", Emoji: "🚕", ParentValue: "transportation"},
	{Value: "fuel", Name: "Fuel", IconName: "Fuel", Color: "hsl(var(--red-200))", Emoji: "⛽", ParentValue: "transportation"},
	{Value: "vehicle_maintenance", Name: "Vehicle Maintenance", IconName: "Car", Color: "hsl(var(--red-300))", Emoji: "🛠️", ParentValue: "transportation"},
	{Value: "parking", Name: "Parking", IconName: "ParkingSquare", Color: "hsl(var(--stone-300))", Emoji: "🅿️", ParentValue: "transportation"},
	{Value: "tolls", Name: "Tolls", IconName: "Route", Color: "hsl(var(--amber-300))", Emoji: "🛣️", ParentValue: "transportation"},

	{Value: "clothing_and_accessories", Name: "Clothing & Accessories", IconName: "ShoppingBag", Color: "hsl(var(--green-300))", Emoji: "👚", ParentValue: "shopping"},
	{Value: "electronics", Name: "Electronics", IconName: "Smartphone", Color: "hsl(var(--blue-400))", Emoji: "📱", ParentValue: "shopping"},
	{Value: "home_and_furniture", Name: "Home & Furniture", IconName: "Home", Color: "hsl(var(--indigo-300))", Emoji: "🛋️", ParentValue: "shopping"},
	{Value: "online_shopping", Name: "Online Shopping", IconName: "ShoppingCart", Color: "hsl(var(--pink-400))", Emoji: "🛍️", ParentValue: "shopping"},

	{Value: "medical_bills", Name: "Medical Bills", IconName: "ReceiptIndianRupee", Color: "hsl(var(--rose-400))", Emoji: "⚕️", ParentValue: "health_and_wellness"},
	{Value: "prescription_medications", Name: "Prescription Medications", IconName: "Pill", Color: "hsl(var(--fuchsia-400))", Emoji: "💊", ParentValue: "health_and_wellness"},
	{Value: "therapy_and_counseling", Name: "Therapy & Counseling", IconName: "HeartPulse", Color: "hsl(var(--teal-300))", Emoji: "🫂", ParentValue: "health_and_wellness"},
	{Value: "dental_care", Name: "Dental Care", IconName: "Utensils", Color: "hsl(var(--cyan-300))", Emoji: "🦷", ParentValue: "health_and_wellness"},
	{Value: "vision_care", Name: "Vision Care", IconName: "Lightbulb", Color: "hsl(var(--indigo-400))", Emoji: "👓", ParentValue: "health_and_wellness"},

	{Value: "rent", Name: "Rent", IconName: "Home", Color: "hsl(var(--blue-200))", Emoji: "🏠", ParentValue: "housing"},
	{Value: "mortgage", Name: "Mortgage", IconName: "Home", Color: "hsl(var(--blue-300))", Emoji: "🏡", ParentValue: "housing"},
	{Value: "home_repairs_and_maintenance", Name: "Home Repairs & Maintenance", IconName: "Home", Color: "hsl(var(--sky-400))", Emoji: "🔧", ParentValue: "housing"},
	{Value: "home_security", Name: "Home Security", IconName: "Home", Color: "hsl(var(--violet-300))", Emoji: "🔒", ParentValue: "housing"},

	{Value: "electricity", Name: "Electricity", IconName: "Lightbulb", Color: "hsl(var(--yellow-400))", Emoji: "💡", ParentValue: "utilities"},
	{Value: "water", Name: "Water", IconName: "GlassWater", Color: "hsl(var(--blue-500))", Emoji: "💧", ParentValue: "utilities"},
	{Value: "gas", Name: "Gas", IconName: "Fuel", Color: "hsl(var(--orange-400))", Emoji: "🔥", ParentValue: "utilities"},
	{Value: "internet", Name: "Internet", IconName: "Router", Color: "hsl(var(--purple-300))", Emoji: "🌐", ParentValue: "utilities"},
	{Value: "mobile_phone", Name: "Mobile Phone", IconName: "Smartphone", Color: "hsl(var(--violet-400))", Emoji: "📞", ParentValue: "utilities"},

	{Value: "flights", Name: "Flights", IconName: "Plane", Color: "hsl(var(--rose-500))", Emoji: "✈️", ParentValue: "travel"},
	{Value: "hotels", Name: "Hotels", IconName: "Hotel", Color: "hsl(var(--fuchsia-500))", Emoji: "🏨", ParentValue: "travel"},
	{Value: "car_rentals", Name: "Car Rentals", IconName: "Car", Color: "hsl(var(--lime-500))", Emoji: "🚗", ParentValue: "travel"},
	{Value: "travel_insurance", Name: "Travel Insurance", IconName: "Plane", Color: "hsl(var(--teal-400))", Emoji: "⛱️", ParentValue: "travel"},
	{Value: "tours_and_excursions", Name: "Tours & Excursions", IconName: "Plane", Color: "hsl(var(--cyan-400))", Emoji: "🗺️", ParentValue: "travel"},

	{Value: "tuition", Name: "Tuition", IconName: "GraduationCap", Color: "hsl(var(--indigo-500))", Emoji: "🎓", ParentValue: "education"},
	{Value: "books_and_supplies", Name: "Books & Supplies", IconName: "ShoppingBag", Color: "hsl(var(--sky-500))", Emoji: "📚", ParentValue: "education"},
	{Value: "online_courses", Name: "Online Courses", IconName: "Lightbulb", Color: "hsl(var(--violet-500))", Emoji: "👨‍💻", ParentValue: "education"},
	{Value: "school_fees", Name: "School Fees", IconName: "GraduationCap", Color: "hsl(var(--yellow-500))", Emoji: "🏫", ParentValue: "education"},
	{Value: "educational_subscriptions", Name: "Educational Subscriptions", IconName: "Lightbulb", Color: "hsl(var(--orange-500))", Emoji: "📰", ParentValue: "education"},

	{Value: "loan_payments", Name: "Loan Payments", IconName: "ReceiptIndianRupee", Color: "hsl(var(--purple-400))", Emoji: "💸", ParentValue: "finance"},
	{Value: "credit_card_fees", Name: "Credit Card Fees", IconName: "CreditCard", Color: "hsl(var(--violet-600))", Emoji: "💳", ParentValue: "finance"},
	{Value: "bank_fees", Name: "Bank Fees", IconName: "ReceiptIndianRupee", Color: "hsl(var(--pink-600))", Emoji: "🏦", ParentValue: "finance"},
	{Value: "insurance_premiums", Name: "Insurance Premiums", IconName: "HeartPulse", Color: "hsl(var(--rose-600))", Emoji: "🛡️", ParentValue: "finance"},
	{Value: "investment_fees", Name: "Investment Fees", IconName: "TrendingUp", Color: "hsl(var(--fuchsia-600))", Emoji: "📈", ParentValue: "finance"},

	{Value: "haircuts_and_grooming", Name: "Haircuts & Grooming", IconName: "HeartPulse", Color: "hsl(var(--lime-600))", Emoji: "💇‍♂️", ParentValue: "personal_care"},
	{Value: "skincare", Name: "Skincare", IconName: "HeartPulse", Color: "hsl(var(--teal-500))", Emoji: "🧴", ParentValue: "personal_care"},
	{Value: "cosmetics", Name: "Cosmetics", IconName: "HeartPulse", Color: "hsl(var(--cyan-500))", Emoji: "💄", ParentValue: "personal_care"},
	{Value: "spa_and_massage", Name: "Spa & Massage", IconName: "HeartPulse", Color: "hsl(var(--indigo-600))", Emoji: "💆‍♀️", ParentValue: "personal_care"},

	{Value: "childcare", Name: "Childcare", IconName: "PawPrint", Color: "hsl(var(--sky-600))", Emoji: "👶", ParentValue: "family"},
	{Value: "baby_supplies", Name: "Baby Supplies", IconName: "PawPrint", Color: "hsl(var(--violet-700))", Emoji: "🍼", ParentValue: "family"},
	{Value: "school_fees_and_supplies", Name: "School Fees & Supplies", IconName: "GraduationCap", Color: "hsl(var(--yellow-600))", Emoji: "🎒", ParentValue: "family"},
	{Value: "pet_care", Name: "Pet Care", IconName: "PawPrint", Color: "hsl(var(--orange-600))", Emoji: "🐾", ParentValue: "family"},

	{Value: "gifts", Name: "Gifts", IconName: "Gift", Color: "hsl(var(--rose-500))", Emoji: "🎁", ParentValue: "gifts_and_donations"},
	{Value: "donations", Name: "Charitable Donations", IconName: "Gift", Color: "hsl(var(--purple-500))", Emoji: "🙏", ParentValue: "gifts_and_donations"},

	{Value: "income_tax", Name: "Income Tax", IconName: "ReceiptIndianRupee", Color: "hsl(var(--fuchsia-700))", Emoji: "🧾", ParentValue: "taxes"},
	{Value: "property_tax", Name: "Property Tax", IconName: "Home", Color: "hsl(var(--lime-700))", Emoji: "🏘️", ParentValue: "taxes"},
	{Value: "vehicle_tax", Name: "Vehicle Tax", IconName: "Car", Color: "hsl(var(--teal-600))", Emoji: "🚘", ParentValue: "taxes"},
	{Value: "sales_tax", Name: "Sales Tax", IconName: "Percent", Color: "hsl(var(--cyan-600))", Emoji: "🏷️", ParentValue: "taxes"},

	{Value: "stocks", Name: "Stocks", IconName: "TrendingUp", Color: "hsl(var(--indigo-700))", Emoji: "📊", ParentValue: "investments", ExcludeFromCashFlow: true},
	{Value: "mutual_funds", Name: "Mutual Funds", IconName: "TrendingUp", Color: "hsl(var(--sky-700))", Emoji: "💹", ParentValue: "investments", ExcludeFromCashFlow: true},
	{Value: "bonds", Name: "Bonds", IconName: "TrendingUp", Color: "hsl(var(--violet-900))", Emoji: "💱", ParentValue: "investments", ExcludeFromCashFlow: true},
	{Value: "cryptocurrency", Name: "Cryptocurrency", IconName: "TrendingUp", Color: "hsl(var(--yellow-700))", Emoji: "🪙", ParentValue: "investments", ExcludeFromCashFlow: true},
	{Value: "real_estate_investments", Name: "Real Estate Investments", IconName: "Home", Color: "hsl(var(--orange-700))", Emoji: "🏢", ParentValue: "investments", ExcludeFromCashFlow: true},

	{Value: "office_supplies", Name: "Office Supplies", IconName: "Briefcase", Color: "hsl(var(--purple-600))", Emoji: "📎", ParentValue: "business_expenses"},
	{Value: "software_tools", Name: "Software Tools", IconName: "Briefcase", Color: "hsl(var(--violet-500))", Emoji: "⚙️", ParentValue: "business_expenses"},
	{Value: "advertising_and_marketing", Name: "Advertising & Marketing", IconName: "TrendingUp", Color: "hsl(var(--pink-800))", Emoji: "📢", ParentValue: "business_expenses"},
	{Value: "business_travel", Name: "Business Travel", IconName: "Briefcase", Color: "hsl(var(--rose-800))", Emoji: "💼", ParentValue: "business_expenses"},
	{Value: "professional_services", Name: "Professional Services", IconName: "Briefcase", Color: "hsl(var(--fuchsia-800))", Emoji: "🧑‍💼", ParentValue: "business_expenses"},

	{Value: "gym_memberships", Name: "Gym Memberships", IconName: "Dumbbell", Color: "hsl(var(--lime-800))", Emoji: "💪", ParentValue: "subscriptions_and_memberships"},
	{Value: "magazine_and_newspapers", Name: "Magazine & Newspapers", IconName: "FileQuestion", Color: "hsl(var(--teal-700))", Emoji: "📰", ParentValue: "subscriptions_and_memberships"},
	{Value: "professional_memberships", Name: "Professional Memberships", IconName: "Briefcase", Color: "hsl(var(--cyan-700))", Emoji: "🧑‍🎓", ParentValue: "subscriptions_and_memberships"},
	{Value: "software_subscriptions", Name: "Software Subscriptions", IconName: "Briefcase", Color: "hsl(var(--indigo-800))", Emoji: "💻", ParentValue: "subscriptions_and_memberships"},

	// standalone
	{Value: "unexpected_expenses", Name: "Unexpected Expenses", IconName: "CircleSlash", Color: "hsl(var(--sky-800))", Emoji: "⚠️"},
	{Value: "other", Name: "Other", IconName: "FileQuestion", Color: "hsl(var(--neutral-200))", Emoji: "💰"},
}

// DefaultSeeds returns special, super and sub seeds in that order, so every
// parent precedes its children.
func DefaultSeeds() []Seed {
	out := make([]Seed, 0, len(SpecialSeeds)+len(SuperSeeds)+len(SubSeeds))
	out = append(out, SpecialSeeds...)
	out = append(out, SuperSeeds...)
	out = append(out, SubSeeds...)
	return out
}

// Build turns seeds into categories with ids 1..n in seed order and parent
// values resolved to ids. A parent must appear before its children.
func Build(seeds []Seed) ([]domain.Category, error) {
	ids := make(map[string]int64, len(seeds))
	out := make([]domain.Category, 0, len(seeds))

	for i, s := range seeds {
		if _, dup := ids[s.Value]; dup {
			return nil, fmt.Errorf("Build: duplicate category value %q", s.Value)
		}
		id := int64(i + 1)
		ids[s.Value] = id

		c := domain.Category{
			ID:                  id,
			Value:               s.Value,
			Name:                s.Name,
			IconName:            s.IconName,
			Color:               s.Color,
			Emoji:               s.Emoji,
			IsDefault:           true,
			IsEnabled:           true,
			ExcludeFromCashFlow: s.ExcludeFromCashFlow,
		}
		if s.ParentValue != "" {
			parent, ok := ids[s.ParentValue]
			if !ok {
				return nil, fmt.Errorf("Build: category %q: parent %q is not defined before it", s.Value, s.ParentValue)
			}
			c.ParentID = &parent
		}
		out = append(out, c)
	}
	return out, nil
}

// Defaults builds the default taxonomy.
func Defaults() []domain.Category {
	cats, err := Build(DefaultSeeds())
	if err != nil {
		panic(err)
	}
	return cats
}

package refdata

import "strings"

// Defaults returns the baseline categories used when no reference file
// exists yet. "Parent > Child" entries become subcategories.
func Defaults() File {
	paths := []string{
		"Income",
		"Food > Groceries",
		"Food > Restaurants",
		"Transport > Fuel",
		"Transport > Public transport",
		"Housing > Rent",
		"Housing > Utilities",
		"Shopping",
		"Subscriptions",
		"Savings",
		"Health",
		"Entertainment",
	}
	var f File
	index := map[string]int{}
	for _, p := range paths {
		parts := strings.Split(p, ">")
		name := strings.TrimSpace(parts[0])
		i, ok := index[name]
		if !ok {
			typ := "expense"
			if name == "Income" {
				typ = "income"
			}
			i = len(f.Categories)
			index[name] = i
			f.Categories = append(f.Categories, Category{Name: name, Type: typ})
		}
		for _, sub := range parts[1:] {
			f.Categories[i].Subcategories = append(f.Categories[i].Subcategories, strings.TrimSpace(sub))
		}
	}
	return f
}

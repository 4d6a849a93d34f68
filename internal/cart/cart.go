// Package cart manipule un panier détenu par le client. Rien n'est
// persisté côté serveur : ces fonctions servent au devis et à la commande.
package cart

import "vastra_back_end/internal/models"

// Key identifie une ligne de panier.
type Key struct {
	ProductID string
	Size      models.Size
	Color     string
}

func KeyOf(item models.CartItem) Key {
	return Key{ProductID: item.ProductID, Size: item.Size, Color: item.Color}
}

// Add ajoute item, ou incrémente la quantité si la ligne existe déjà.
func Add(items []models.CartItem, item models.CartItem) []models.CartItem {
	out := append([]models.CartItem(nil), items...)
	k := KeyOf(item)
	for i := range out {
		if KeyOf(out[i]) == k {
			out[i].Quantity += item.Quantity
			return out
		}
	}
	return append(out, item)
}

func Remove(items []models.CartItem, k Key) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if KeyOf(it) != k {
			out = append(out, it)
		}
	}
	return out
}

// SetQuantity fixe la quantité d'une ligne ; qty <= 0 la retire.
func SetQuantity(items []models.CartItem, k Key, qty int) []models.CartItem {
	if qty <= 0 {
		return Remove(items, k)
	}
	out := append([]models.CartItem(nil), items...)
	for i := range out {
		if KeyOf(out[i]) == k {
			out[i].Quantity = qty
		}
	}
	return out
}

// Merge fusionne les lignes de même clé en conservant l'ordre de première
// apparition.
func Merge(lines []models.CartItem) []models.CartItem {
	var out []models.CartItem
	for _, l := range lines {
		out = Add(out, l)
	}
	return out
}

func Count(items []models.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Package catalog holds the static content shown across the app: rewards,
// badges, challenges, routes and events. Records are never mutated; every
// accessor returns a fresh copy.
package catalog

import "example.com/sabzgam/internal/domain"

// Static serves the built-in catalog.
type Static struct{}

// New returns the built-in catalog.
func New() Static {
	return Static{}
}

// Rewards returns the regular and featured rewards.
func (Static) Rewards() []domain.Reward {
	out := make([]domain.Reward, 0, len(rewards)+len(featuredRewards))
	out = append(out, rewards...)
	return append(out, featuredRewards...)
}

// Badges returns achievement badges with their progress.
func (Static) Badges() []domain.Badge {
	return append([]domain.Badge(nil), badges...)
}

// Challenges returns the active challenges.
func (Static) Challenges() []domain.Challenge {
	return append([]domain.Challenge(nil), challenges...)
}

// Routes returns popular walking routes.
func (Static) Routes() []domain.Route {
	return append([]domain.Route(nil), routes...)
}

// Events returns upcoming community events.
func (Static) Events() []domain.Event {
	return append([]domain.Event(nil), events...)
}

var rewards = []domain.Reward{
	{ID: 1, Title: "Coffee discount", Description: "A discount on your next coffee", Vendor: "Cafe Tehran", Category: domain.CategoryFood, Cost: 200000, Discount: "15% off", Icon: "coffee"},
	{ID: 2, Title: "Free pastry", Description: "One free pastry with any purchase", Vendor: "Cafe Tehran", Category: domain.CategoryFood, Cost: 300000, Discount: "Free item", Icon: "coffee"},
	{ID: 3, Title: "Shopping discount", Description: "A discount on your next purchase", Vendor: "Tehran Bazaar", Category: domain.CategoryRetail, Cost: 500000, Discount: "10% off", Icon: "shopping-bag"},
	{ID: 4, Title: "Bus ticket", Description: "One free bus ticket", Vendor: "Tehran Metro", Category: domain.CategoryTransport, Cost: 150000, Discount: "Free ticket", Icon: "bus"},
	{ID: 5, Title: "Cinema ticket discount", Description: "A discount on a cinema ticket", Vendor: "Cinema Tehran", Category: domain.CategoryEntertainment, Cost: 400000, Discount: "20% off", Icon: "ticket"},
	{ID: 6, Title: "Theatre ticket", Description: "A discount on a theatre ticket", Vendor: "Tehran Theatre", Category: domain.CategoryEntertainment, Cost: 600000, Discount: "25% off", Icon: "theater"},
}

var featuredRewards = []domain.Reward{
	{ID: 101, Title: "Specialty coffee set", Description: "Enjoy our specialty coffee collection with a friend at an app-only price", Vendor: "Cafe Tehran Premium", Category: domain.CategoryFood, Cost: 1000000, Discount: "Buy one, get one free", Icon: "coffee", Featured: true},
	{ID: 102, Title: "Monthly transit pass", Description: "A significant discount on the monthly public transport pass in Tehran", Vendor: "Tehran Metro & Bus", Category: domain.CategoryTransport, Cost: 2000000, Discount: "30% off the monthly pass", Icon: "bus", Featured: true},
}

var badges = []domain.Badge{
	{ID: "first-steps", Title: "First steps", Description: "Take your first 1,000 steps", Icon: "footprints", Progress: 100},
	{ID: "climate-champion", Title: "Climate champion", Description: "Save 10 kg of CO2", Icon: "leaf", Progress: 100},
	{ID: "active-citizen", Title: "Active citizen", Description: "Walk in 5 different districts", Icon: "map-pin", Progress: 80},
	{ID: "weekly-warrior", Title: "Weekly warrior", Description: "Complete 5 weekly challenges", Icon: "award", Progress: 60},
	{ID: "consistency-king", Title: "Consistency king", Description: "Walk 7 days in a row", Icon: "calendar", Progress: 100},
	{ID: "marathon-master", Title: "Marathon master", Description: "Walk 42.2 km in one month", Icon: "trophy", Progress: 35},
	{ID: "streak-master", Title: "Streak master", Description: "Keep a 30-day streak", Icon: "flame", Progress: 23},
	{ID: "community-guide", Title: "Community guide", Description: "Help 3 new users join", Icon: "users", Progress: 33},
}

var challenges = []domain.Challenge{
	{ID: "weekly-steps", Title: "Weekly step challenge", Description: "Take 50,000 steps this week", Icon: "footprints", Progress: 68, RewardCoins: 30, EndDate: "Sunday, 25 Farvardin"},
	{ID: "earth-day", Title: "Earth day challenge", Description: "Save 5 kg of CO2 by walking", Icon: "leaf", Progress: 42, RewardCoins: 25, EndDate: "Monday, 2 Ordibehesht"},
	{ID: "group-walk", Title: "Group walk", Description: "Join a community walking event", Icon: "users", Progress: 0, RewardCoins: 20, EndDate: "Friday, 30 Farvardin"},
}

var routes = []domain.Route{
	{Name: "Valiasr Street walk", Distance: "3.2 km", Time: "40-45 min", Popularity: 234, Coins: 3},
	{Name: "Tehran Bazaar tour", Distance: "2.5 km", Time: "30-35 min", Popularity: 189, Coins: 2},
	{Name: "Mellat Park loop", Distance: "4.1 km", Time: "50-55 min", Popularity: 156, Coins: 4},
}

var events = []domain.Event{
	{Title: "World car-free day walk", Date: "2 Ordibehesht 1404, 10:00", Location: "Taleghani Park", Participants: 157, Coins: 25},
	{Title: "Historic Tehran walk", Date: "8 Ordibehesht 1404, 16:00", Location: "National Museum", Participants: 87, Coins: 15},
}

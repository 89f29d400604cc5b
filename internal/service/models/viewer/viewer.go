package viewer

// Viewer is the identity of whoever looks at an order.
type Viewer struct {
	UserID          string `json:"userId"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	IsAdmin         bool   `json:"isAdmin"`
}

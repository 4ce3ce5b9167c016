package credit

import (
	"strings"

	"github.com/fiado/backend/internal/domain/shared"
)

// Client is a customer who may buy on credit. The allocation flow only reads it.
type Client struct {
	shared.BaseEntity
	Name     string
	Phone    string
	Email    string
	Document string
	Address  string
}

// NewClient creates a new client
func NewClient(name string) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Client name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Client name cannot exceed 200 characters")
	}
	return &Client{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
	}, nil
}

// SetContact updates the contact fields
func (c *Client) SetContact(phone, email, address string) {
	c.Phone = strings.TrimSpace(phone)
	c.Email = strings.TrimSpace(email)
	c.Address = strings.TrimSpace(address)
	c.Touch()
}

// SetDocument sets the tax or identity document number
func (c *Client) SetDocument(document string) {
	c.Document = strings.TrimSpace(document)
	c.Touch()
}

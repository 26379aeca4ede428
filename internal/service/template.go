// internal/service/template.go
package service

import (
	"strings"

	"github.com/campaignify/xenocrm-backend/internal/model"
)

// DefaultGreeting is the content used when a campaign carries no base
// template.
const DefaultGreeting = "Hi {name}, here's a special offer just for you!"

func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		if v == "" {
			v = "N/A"
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// RenderContent produces the message content for one audience member.
// Deterministic and side-effect-free.
func RenderContent(campaign *model.Campaign, customer *model.Customer) string {
	template := campaign.BaseTemplate
	if strings.TrimSpace(template) == "" {
		template = DefaultGreeting
	}
	return RenderTemplate(template, map[string]string{
		"name":    customer.Name,
		"email":   customer.Email,
		"country": customer.Country,
	})
}

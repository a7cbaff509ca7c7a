// Package schema defines the read-only GraphQL view of the catalog.
//
//	{ products(category: "equipment", limit: 5) { id name price inStock } }
//	{ plan(id: 3) { name seatsLeft canJoin } }
package schema

import (
	"github.com/graphql-go/graphql"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/app/services"
	fgql "github.com/fitforge/fitforge/pkg/graphql"
)

func product(p graphql.ResolveParams) models.Product {
	v, _ := p.Source.(models.Product)
	return v
}

func plan(p graphql.ResolveParams) models.WorkoutPlan {
	v, _ := p.Source.(models.WorkoutPlan)
	return v
}

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: func(p graphql.ResolveParams) (any, error) { return int(product(p).ID), nil }},
		"name":  &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return product(p).Name, nil }},
		"sku":   &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return product(p).SKU, nil }},
		"brand": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return product(p).Brand, nil }},
		"category": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) {
			return string(product(p).Category), nil
		}},
		"price": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) {
			return product(p).Price.StringFixed(2), nil
		}},
		"stock": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (any, error) { return product(p).Stock, nil }},
		"inStock": &graphql.Field{Type: graphql.Boolean, Resolve: func(p graphql.ResolveParams) (any, error) {
			return product(p).IsInStock(1), nil
		}},
		"averageRating": &graphql.Field{Type: graphql.Float, Resolve: func(p graphql.ResolveParams) (any, error) {
			return product(p).AverageRating, nil
		}},
	},
})

var planType = graphql.NewObject(graphql.ObjectConfig{
	Name: "WorkoutPlan",
	Fields: graphql.Fields{
		"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: func(p graphql.ResolveParams) (any, error) { return int(plan(p).ID), nil }},
		"name": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) { return plan(p).Name, nil }},
		"level": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) {
			return string(plan(p).Level), nil
		}},
		"category": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) {
			return string(plan(p).Category), nil
		}},
		"price": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) {
			return plan(p).Price.StringFixed(2), nil
		}},
		"maxMembers":    &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (any, error) { return plan(p).MaxMembers, nil }},
		"activeMembers": &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (any, error) { return plan(p).ActiveMembers, nil }},
		"seatsLeft":     &graphql.Field{Type: graphql.Int, Resolve: func(p graphql.ResolveParams) (any, error) { return plan(p).SeatsLeft(), nil }},
		"canJoin":       &graphql.Field{Type: graphql.Boolean, Resolve: func(p graphql.ResolveParams) (any, error) { return plan(p).CanJoin(), nil }},
	},
})

func intArg(args map[string]any, key string, def int) int {
	if v, ok := args[key].(int); ok {
		return v
	}
	return def
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// New builds the catalog schema on top of the services. Only active
// products and public plans are exposed.
func New(catalog *services.CatalogService, plans *services.PlanService) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)}},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return catalog.GetProduct(p.Context, uint(max(intArg(p.Args, "id", 0), 0)))
				},
			},
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"search":   &graphql.ArgumentConfig{Type: graphql.String},
					"sort":     &graphql.ArgumentConfig{Type: graphql.String},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					items, _, err := catalog.ListProducts(p.Context, repositories.ProductQuery{
						Category: models.ProductCategory(stringArg(p.Args, "category")),
						Search:   stringArg(p.Args, "search"),
						Sort:     repositories.ProductSort(stringArg(p.Args, "sort")),
						Status:   models.StatusActive,
						Page:     intArg(p.Args, "page", 1),
						Limit:    intArg(p.Args, "limit", 20),
					})
					return items, err
				},
			},
			"plan": &graphql.Field{
				Type: planType,
				Args: graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)}},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return plans.GetPlan(p.Context, uint(max(intArg(p.Args, "id", 0), 0)))
				},
			},
			"plans": &graphql.Field{
				Type: graphql.NewList(planType),
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"level":    &graphql.ArgumentConfig{Type: graphql.String},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					items, _, err := plans.ListPlans(p.Context, repositories.PlanQuery{
						Category:   models.PlanCategory(stringArg(p.Args, "category")),
						Level:      models.PlanLevel(stringArg(p.Args, "level")),
						Status:     models.StatusActive,
						Visibility: models.VisibilityPublic,
						Page:       intArg(p.Args, "page", 1),
						Limit:      intArg(p.Args, "limit", 20),
					})
					return items, err
				},
			},
		},
	})
	return fgql.NewSchema(query)
}

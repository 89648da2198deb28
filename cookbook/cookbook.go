// Package cookbook stores the recipes a visitor writes and reads back what
// the visitor has saved.
package cookbook

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/eringen/ratatouille/recipe"
	"github.com/eringen/ratatouille/storage"
)

// User-facing messages.
const (
	RequiredFieldsMessage = "All fields are required!"
	RecipeAddedMessage    = "Recipe added successfully!"
)

// Notifier shows a message to the visitor.
type Notifier interface {
	Notify(msg string)
}

// Book is one visitor's saved recipes.
type Book struct {
	custom     *storage.Collection[recipe.Custom]
	favourites *storage.Collection[recipe.Favourite]
	notify     Notifier
	logger     echo.Logger
}

// New binds a Book to store.
func New(store storage.Collections, notify Notifier, logger echo.Logger) *Book {
	if logger == nil {
		l := log.New("cookbook")
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Book{
		custom:     storage.CustomRecipes(store, logger),
		favourites: storage.Favourites(store, logger),
		notify:     notify,
		logger:     logger,
	}
}

// AddRecipe appends a custom recipe. Every field must be non-blank; when one
// is missing a *recipe.ValidationError carrying RequiredFieldsMessage is
// returned and nothing is written.
func (b *Book) AddRecipe(ctx context.Context, title, ingredients, instructions string) (recipe.Custom, error) {
	r := recipe.Custom{
		Title:        strings.TrimSpace(title),
		Ingredients:  strings.TrimSpace(ingredients),
		Instructions: strings.TrimSpace(instructions),
	}
	if err := r.Validate(); err != nil {
		var verr *recipe.ValidationError
		if errors.As(err, &verr) {
			return recipe.Custom{}, &recipe.ValidationError{Field: verr.Field, Message: RequiredFieldsMessage}
		}
		return recipe.Custom{}, err
	}
	if err := b.custom.Append(ctx, r); err != nil {
		b.logger.Errorf("cookbook: saving custom recipe %q: %v", r.Title, err)
		return recipe.Custom{}, err
	}
	if b.notify != nil {
		b.notify.Notify(RecipeAddedMessage)
	}
	return r, nil
}

// CustomRecipes returns the visitor's own recipes in the order they were added.
func (b *Book) CustomRecipes(ctx context.Context) ([]recipe.Custom, error) {
	return b.custom.All(ctx)
}

// Favourites returns the visitor's saved search results in the order they
// were saved.
func (b *Book) Favourites(ctx context.Context) ([]recipe.Favourite, error) {
	return b.favourites.All(ctx)
}

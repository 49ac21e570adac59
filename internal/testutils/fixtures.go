package testutils

import (
	"fmt"

	recipeModel "terminal-terrace/foodgram/internal/model/recipe"
	userModel "terminal-terrace/foodgram/internal/model/user"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateTestUser creates a test user with unique username/email
func CreateTestUser(db *gorm.DB, opts ...UserOption) *userModel.User {
	uniqueID := uuid.New().String()[:8]

	testUser := &userModel.User{
		Username:     fmt.Sprintf("test_user_%s", uniqueID),
		Email:        fmt.Sprintf("test_%s@example.com", uniqueID),
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "x",
		Role:         userModel.RoleUser,
	}

	for _, opt := range opts {
		opt(testUser)
	}

	if err := db.Create(testUser).Error; err != nil {
		panic(fmt.Sprintf("Failed to create test user: %v", err))
	}

	return testUser
}

// UserOption configures test user
type UserOption func(*userModel.User)

// WithUsername sets the username
func WithUsername(username string) UserOption {
	return func(u *userModel.User) {
		u.Username = username
	}
}

// WithEmail sets the email
func WithEmail(email string) UserOption {
	return func(u *userModel.User) {
		u.Email = email
	}
}

// WithRole sets the role
func WithRole(role string) UserOption {
	return func(u *userModel.User) {
		u.Role = role
	}
}

// WithPasswordHash sets the stored password hash
func WithPasswordHash(hash string) UserOption {
	return func(u *userModel.User) {
		u.PasswordHash = hash
	}
}

// CreateTestTag creates a tag with unique name/slug
func CreateTestTag(db *gorm.DB) *recipeModel.Tag {
	uniqueID := uuid.New().String()[:8]
	tag := &recipeModel.Tag{
		Name:  "tag " + uniqueID,
		Color: "#49B64E",
		Slug:  "tag-" + uniqueID,
	}
	if err := db.Create(tag).Error; err != nil {
		panic(fmt.Sprintf("Failed to create test tag: %v", err))
	}
	return tag
}

// CreateTestIngredient creates an ingredient; name is made unique
func CreateTestIngredient(db *gorm.DB, name, unit string) *recipeModel.Ingredient {
	ingredient := &recipeModel.Ingredient{
		Name:            fmt.Sprintf("%s %s", name, uuid.New().String()[:8]),
		MeasurementUnit: unit,
	}
	if err := db.Create(ingredient).Error; err != nil {
		panic(fmt.Sprintf("Failed to create test ingredient: %v", err))
	}
	return ingredient
}

// CreateTestRecipe creates a recipe with the given ingredient amounts (ingredient id -> amount)
func CreateTestRecipe(db *gorm.DB, authorID uint, amounts map[uint]int, opts ...RecipeOption) *recipeModel.Recipe {
	recipe := &recipeModel.Recipe{
		AuthorID:    authorID,
		Name:        "Test recipe " + uuid.New().String()[:8],
		Text:        "Test recipe text",
		Image:       "/media/recipes/images/test.png",
		CookingTime: 15,
	}

	for _, opt := range opts {
		opt(recipe)
	}

	if err := db.Omit("Author", "Ingredients", "RecipeTags").Create(recipe).Error; err != nil {
		panic(fmt.Sprintf("Failed to create test recipe: %v", err))
	}

	for ingredientID, amount := range amounts {
		row := &recipeModel.IngredientAmount{RecipeID: recipe.ID, IngredientID: ingredientID, Amount: amount}
		if err := db.Omit("Ingredient").Create(row).Error; err != nil {
			panic(fmt.Sprintf("Failed to create test ingredient amount: %v", err))
		}
	}

	return recipe
}

// RecipeOption configures test recipe
type RecipeOption func(*recipeModel.Recipe)

// WithRecipeName sets the recipe name
func WithRecipeName(name string) RecipeOption {
	return func(r *recipeModel.Recipe) {
		r.Name = name
	}
}

// WithCookingTime sets the cooking time
func WithCookingTime(minutes int) RecipeOption {
	return func(r *recipeModel.Recipe) {
		r.CookingTime = minutes
	}
}

// Package prompt builds the instruction sent to the text generation model
package prompt

import "strings"

const (
	Preamble = "Generate an SEO friendly product title and description based on the following information:"
	Closing  = "Using this information, create a compelling and SEO-friendly product title and description."

	// NotEnoughInfo replaces the whole instruction when the user gave us nothing
	NotEnoughInfo = "It seems like you haven't provided enough information. Please provide details such as the product name, features, benefits, and any other relevant information to generate an effective title and description."
)

// Input holds whatever the user submitted. Empty strings count as absent.
type Input struct {
	Title       string
	Description string
	Prompt      string
	// ImageURL is set when an image was uploaded, Caption is what the
	// vision model said about it
	ImageURL string
	Caption  string
}

func (in Input) HasImage() bool {
	return in.ImageURL != ""
}

// Compose assembles the instruction. Lines are appended in a fixed order:
// title, description, image, additional information.
func Compose(in Input) string {
	if in.Title == "" && in.Description == "" && in.Prompt == "" && !in.HasImage() {
		return NotEnoughInfo
	}

	var b strings.Builder
	b.WriteString(Preamble)

	if in.Title != "" {
		b.WriteString("\nProduct Title: " + in.Title)
	}

	if in.Description != "" {
		b.WriteString("\nProduct Description: " + in.Description)
	}

	if in.HasImage() {
		b.WriteString("\nImage URL: " + in.ImageURL)
		b.WriteString("\nImage Description: " + in.Caption)
	}

	if in.Prompt != "" {
		b.WriteString("\nAdditional Information: " + in.Prompt)
	}

	b.WriteString("\n" + Closing)

	return b.String()
}

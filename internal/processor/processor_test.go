package processor

import (
	"errors"
	"strings"
	"testing"
)

const listingHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Mountainbike | Kleinanzeigen</title>
  <meta property="og:image" content="https://img.example/og.jpg">
</head>
<body>
  <h1 id="viewad-title" class="boxedarticle--title">
      Mountainbike 29 Zoll
  </h1>
  <h2 id="viewad-price">1.450 €   VB</h2>
  <span id="viewad-locality">
     20095 Hamburg - Altstadt
  </span>
  <div class="galleryimage-element"><img src="https://img.example/1.jpg"></div>
  <div class="galleryimage-element"><img src="data:image/gif;base64,R0l" data-src="/img/2.jpg"></div>
  <div class="galleryimage-element"><img src="https://img.example/1.jpg"></div>
  <p id="viewad-description-text">Verkaufe mein Bike.<br>  Shimano XT.<br><br>Probefahrt möglich.</p>
</body>
</html>`

func TestProcess_ExtractsListingFields(t *testing.T) {
	lp := NewListingProcessor()
	res, err := lp.Process(listingHTML, "https://www.kleinanzeigen.de/s-anzeige/x/123", DefaultProcessOptions())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if res.Title != "Mountainbike 29 Zoll" {
		t.Errorf("unexpected title %q", res.Title)
	}
	if res.Price != "1.450 € VB" {
		t.Errorf("unexpected price %q", res.Price)
	}
	if res.Location != "20095 Hamburg - Altstadt" {
		t.Errorf("unexpected location %q", res.Location)
	}
	if res.Description != "Verkaufe mein Bike.\nShimano XT.\nProbefahrt möglich." {
		t.Errorf("unexpected description %q", res.Description)
	}

	want := []string{"https://img.example/1.jpg", "https://www.kleinanzeigen.de/img/2.jpg"}
	if len(res.Images) != len(want) {
		t.Fatalf("expected %d images, got %v", len(want), res.Images)
	}
	for i := range want {
		if res.Images[i] != want[i] {
			t.Errorf("image %d: expected %q, got %q", i, want[i], res.Images[i])
		}
	}
}

func TestProcess_NoListing(t *testing.T) {
	lp := NewListingProcessor()
	_, err := lp.Process("<html><body><p>Diese Anzeige ist nicht mehr verfügbar.</p></body></html>", "https://www.kleinanzeigen.de/s-anzeige/x/1", DefaultProcessOptions())
	if !errors.Is(err, ErrNoListing) {
		t.Fatalf("expected ErrNoListing, got %v", err)
	}
}

func TestProcess_MissingFieldsStayEmpty(t *testing.T) {
	lp := NewListingProcessor()
	res, err := lp.Process(`<html><body><h1 id="viewad-title">Bike</h1></body></html>`, "https://www.kleinanzeigen.de/s-anzeige/x/1", ProcessOptions{})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Price != "" || res.Location != "" || res.Description != "" {
		t.Errorf("expected empty optional fields, got %+v", res)
	}
	if res.Images == nil || len(res.Images) != 0 {
		t.Errorf("expected empty non-nil images, got %#v", res.Images)
	}
}

func TestProcess_OpenGraphFallbacks(t *testing.T) {
	html := `<html><head>
<meta property="og:title" content="Sofa grau">
<meta property="og:image" content="https://img.example/sofa.jpg">
</head><body></body></html>`

	lp := NewListingProcessor()
	res, err := lp.Process(html, "https://www.kleinanzeigen.de/s-anzeige/x/1", ProcessOptions{})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Title != "Sofa grau" {
		t.Errorf("expected og:title fallback, got %q", res.Title)
	}
	if len(res.Images) != 1 || res.Images[0] != "https://img.example/sofa.jpg" {
		t.Errorf("expected og:image fallback, got %v", res.Images)
	}
}

func TestProcessFromReader(t *testing.T) {
	lp := NewListingProcessor()
	res, err := lp.ProcessFromReader(strings.NewReader(listingHTML), "https://www.kleinanzeigen.de/s-anzeige/x/123", ProcessOptions{})
	if err != nil {
		t.Fatalf("ProcessFromReader failed: %v", err)
	}
	if res.Title == "" {
		t.Error("expected a title")
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  a \n\t b  "); got != "a b" {
		t.Errorf("unexpected %q", got)
	}
}

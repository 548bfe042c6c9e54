package site

import (
	"strings"
	"testing"
)

const samplePage = `
<html><body>
<form method="post" id="gform_1" action="/">
  <input type="hidden" name="gform_ajax" value="form_id=1" />
  <input type="hidden" name="is_submit_1" value="1" />
  <input type="hidden" name="gform_submit" value="1" />
  <input type='hidden' name='state_1' value='abc123' />
  <input type="text" name="input_1" value="" />
  <input type="checkbox" name="input_6.1" value="1" />
  <input type="hidden" name="input_6.2" value="I agree to the rules" />
  <input type="text" name="input_7" value="" />
</form>
<form method="post" id="gform_3" action="/">
  <input type="hidden" name="is_submit_3" value="1" />
  <input type="hidden" name="gform_submit" value="3" />
  <input type="text" name="input_1" value="" />
  <input type="password" name="input_3" value="" />
</form>
</body></html>`

func TestFindForm(t *testing.T) {
	form, err := findForm(samplePage, "gform_1")
	if err != nil {
		t.Fatalf("Failed to find registration form: %v", err)
	}

	// The extracted block must stop at its own closing tag, not swallow the
	// login form too.
	if strings.Contains(form, "is_submit_3") {
		t.Error("Form extraction leaked into the next form")
	}
	if !strings.Contains(form, "is_submit_1") {
		t.Error("Form extraction lost its own hidden inputs")
	}

	if _, err := findForm(samplePage, "gform_99"); err == nil {
		t.Error("Expected error for a missing form id")
	}
}

func TestHiddenInputs(t *testing.T) {
	form, err := findForm(samplePage, "gform_1")
	if err != nil {
		t.Fatalf("Failed to find form: %v", err)
	}

	hidden := hiddenInputs(form)
	want := map[string]string{
		"gform_ajax":   "form_id=1",
		"is_submit_1":  "1",
		"gform_submit": "1",
		"state_1":      "abc123",
		"input_6.2":    "I agree to the rules",
	}
	for name, value := range want {
		if hidden[name] != value {
			t.Errorf("Expected hidden %s=%q, got %q", name, value, hidden[name])
		}
	}

	// Visible inputs are not hidden state
	if _, ok := hidden["input_1"]; ok {
		t.Error("Text input wrongly collected as hidden")
	}
	if _, ok := hidden["input_6.1"]; ok {
		t.Error("Checkbox wrongly collected as hidden")
	}
}

func TestInputValue(t *testing.T) {
	form, err := findForm(samplePage, "gform_1")
	if err != nil {
		t.Fatalf("Failed to find form: %v", err)
	}

	if got := inputValue(form, "input_6.2"); got != "I agree to the rules" {
		t.Errorf("Expected consent value, got %q", got)
	}
	if got := inputValue(form, "input_99"); got != "" {
		t.Errorf("Expected empty value for missing input, got %q", got)
	}
}

func TestExtractGameNonce(t *testing.T) {
	page := `<script>var gameAjax = { ajaxurl: 'https://gladecontest.ca/wp-admin/admin-ajax.php', nonce: 'a1b2c3d4e5' };</script>`
	nonce, ok := extractGameNonce(page)
	if !ok {
		t.Fatal("Expected nonce to be found")
	}
	if nonce != "a1b2c3d4e5" {
		t.Errorf("Expected nonce a1b2c3d4e5, got %s", nonce)
	}

	if _, ok := extractGameNonce("<html>no script here</html>"); ok {
		t.Error("Expected no nonce on a page without the script")
	}
}

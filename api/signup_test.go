package api_test

import (
	"net/http"
	"testing"

	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/internal/signup"
)

func createForm(t *testing.T, env *testEnv) signup.Snapshot {
	t.Helper()
	resp := env.do(t, http.MethodPost, "/signup/forms", "", nil)
	expectStatus(t, resp, http.StatusCreated)
	return decode[signup.Snapshot](t, resp)
}

func fillForm(t *testing.T, env *testEnv, id, email string) signup.Snapshot {
	t.Helper()
	resp := env.do(t, http.MethodPatch, "/signup/forms/"+id, "", map[string]string{
		"first_name": "Анна",
		"last_name":  "Иванова",
		"email":      email,
		"password":   "Secret1!",
		"city":       "Москва",
		"university": "НИУ ВШЭ",
	})
	expectStatus(t, resp, http.StatusOK)
	return decode[signup.Snapshot](t, resp)
}

func signupUser(t *testing.T, env *testEnv, email string) models.AuthResponse {
	t.Helper()
	form := createForm(t, env)
	fillForm(t, env, form.ID, email)
	resp := env.do(t, http.MethodPost, "/signup/forms/"+form.ID+"/submit", "", nil)
	expectStatus(t, resp, http.StatusCreated)
	return decode[models.AuthResponse](t, resp)
}

func TestCreateForm(t *testing.T) {
	env := setup(t)
	form := createForm(t, env)

	if form.ID == "" {
		t.Fatal("expected form id")
	}
	if form.State != "editing" {
		t.Errorf("expected editing state, got %s", form.State)
	}
	if form.CitiesLoading || len(form.Cities) != 5 {
		t.Errorf("expected 5 loaded cities, got loading=%v cities=%v", form.CitiesLoading, form.Cities)
	}
	if form.Requirements.LengthOK {
		t.Error("empty password must not satisfy length")
	}
}

func TestUpdateForm(t *testing.T) {
	env := setup(t)
	form := createForm(t, env)
	snap := fillForm(t, env, form.ID, "anna@example.com")

	if !snap.Requirements.Satisfied() {
		t.Errorf("expected all password requirements met: %+v", snap.Requirements)
	}
	if len(snap.Universities) == 0 || snap.FreeTextUniversity {
		t.Errorf("expected Moscow universities, got %v", snap.Universities)
	}

	resp := env.do(t, http.MethodPatch, "/signup/forms/"+form.ID, "", map[string]string{"city": "Урюпинск"})
	expectStatus(t, resp, http.StatusOK)
	snap = decode[signup.Snapshot](t, resp)
	if snap.University != "" || !snap.FreeTextUniversity {
		t.Errorf("expected free-text mode with cleared university, got %+v", snap)
	}
}

func TestSubmitFormSuccess(t *testing.T) {
	env := setup(t)
	auth := signupUser(t, env, "anna@example.com")

	if auth.Token == "" || auth.UID == "" {
		t.Fatalf("expected token and uid, got %+v", auth)
	}
	if auth.Redirect != "/success?type=signup" {
		t.Errorf("unexpected redirect %q", auth.Redirect)
	}

	resp := env.do(t, http.MethodGet, "/me", auth.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	me := decode[models.Me](t, resp)
	if me.Profile == nil {
		t.Fatal("expected profile")
	}
	if me.Profile.FirstName != "Анна" || me.Profile.University != "НИУ ВШЭ" || me.Profile.City != "Москва" {
		t.Errorf("unexpected profile %+v", me.Profile)
	}
	if me.Profile.CreatedAt.IsZero() {
		t.Error("expected server timestamp on profile")
	}
}

func TestSubmitFormInvalid(t *testing.T) {
	env := setup(t)
	form := createForm(t, env)

	resp := env.do(t, http.MethodPost, "/signup/forms/"+form.ID+"/submit", "", nil)
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	out := decode[models.OutcomeResponse](t, resp)
	if out.Error != signup.MsgInvalidForm || out.State != "failed" {
		t.Errorf("unexpected outcome %+v", out)
	}
}

func TestSubmitFormDuplicate(t *testing.T) {
	env := setup(t)
	signupUser(t, env, "anna@example.com")

	form := createForm(t, env)
	fillForm(t, env, form.ID, "anna@example.com")
	resp := env.do(t, http.MethodPost, "/signup/forms/"+form.ID+"/submit", "", nil)
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	out := decode[models.OutcomeResponse](t, resp)
	if out.Error != signup.MsgDuplicateAccount {
		t.Errorf("expected duplicate message, got %q", out.Error)
	}
}

func TestSubmitFormBadEmail(t *testing.T) {
	env := setup(t)
	form := createForm(t, env)
	fillForm(t, env, form.ID, "not-an-email")

	resp := env.do(t, http.MethodPost, "/signup/forms/"+form.ID+"/submit", "", nil)
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if out := decode[models.OutcomeResponse](t, resp); out.Error != signup.MsgInvalidEmail {
		t.Errorf("expected invalid email message, got %q", out.Error)
	}
}

func TestFormDiscardedAfterSuccess(t *testing.T) {
	env := setup(t)
	form := createForm(t, env)
	fillForm(t, env, form.ID, "anna@example.com")
	resp := env.do(t, http.MethodPost, "/signup/forms/"+form.ID+"/submit", "", nil)
	expectStatus(t, resp, http.StatusCreated)

	resp = env.do(t, http.MethodGet, "/signup/forms/"+form.ID, "", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestUnknownForm(t *testing.T) {
	env := setup(t)
	resp := env.do(t, http.MethodPatch, "/signup/forms/missing", "", map[string]string{"city": "Москва"})
	expectStatus(t, resp, http.StatusNotFound)
}

func TestFederatedSignupNotConfigured(t *testing.T) {
	env := setup(t)
	form := createForm(t, env)

	resp := env.do(t, http.MethodPost, "/signup/forms/"+form.ID+"/google", "", map[string]string{"id_token": "x"})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	resp = env.do(t, http.MethodPost, "/signup/forms/"+form.ID+"/google", "", map[string]string{})
	expectStatus(t, resp, http.StatusBadRequest)
}

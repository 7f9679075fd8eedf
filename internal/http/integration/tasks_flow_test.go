package integration_test

import (
	"net/http"
	"testing"

	"github.com/geocoder89/taskhub/internal/notifications"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTaskLifecycle_AssignProgressValidate(t *testing.T) {
	for name, stores := range backends {
		t.Run(name, func(t *testing.T) {
			a := newApp(t, stores)
			admin := a.login(t, adminEmail, adminPassword)
			userID, userToken := a.createUser(t, admin, "jean@example.com", "0340000001")

			taskID := a.assign(t, admin, userID, "Rapport mensuel")

			got := a.expect(t, http.StatusOK, http.MethodGet, userTaskPath(taskID, ""), userToken, "")
			if got["statut"] != "à faire" || got["valide_par_admin"] != false {
				t.Fatalf("new task: unexpected body %v", got)
			}
			owner, _ := got["user"].(map[string]any)
			if owner["email"] != "jean@example.com" {
				t.Fatalf("new task: expected owner summary, got %v", got["user"])
			}

			resp := a.expect(t, http.StatusOK, http.MethodPut, userTaskPath(taskID, "/status"), userToken, `{"statut":"en cours"}`)
			if resp["message"] != "Tâche marquée comme 'en cours'" {
				t.Fatalf("unexpected message %v", resp["message"])
			}

			// no way back to todo
			a.expect(t, http.StatusBadRequest, http.MethodPut, userTaskPath(taskID, "/status"), userToken, `{"statut":"à faire"}`)

			resp = a.expect(t, http.StatusOK, http.MethodPut, userTaskPath(taskID, "/status"), userToken, `{"statut":"terminé"}`)
			done, _ := resp["task"].(map[string]any)
			if done["statut"] != "terminé" || done["date_fin"] == nil {
				t.Fatalf("done task: unexpected body %v", done)
			}

			resp = a.expect(t, http.StatusOK, http.MethodPut, taskPath(taskID, "/validate"), admin, "")
			if resp["message"] != "Tâche validée avec succès" {
				t.Fatalf("unexpected message %v", resp["message"])
			}
			validated, _ := resp["task"].(map[string]any)
			if validated["statut"] != "validé" || validated["valide_par_admin"] != true || validated["date_validation"] == nil {
				t.Fatalf("validated task: unexpected body %v", validated)
			}

			// validation is terminal for both sides
			resp = a.expect(t, http.StatusBadRequest, http.MethodPut, taskPath(taskID, "/validate"), admin, "")
			if resp["error"] != "Action impossible" || resp["statut_actuel"] != "validé" {
				t.Fatalf("second validate: unexpected body %v", resp)
			}
			a.expect(t, http.StatusBadRequest, http.MethodPut, userTaskPath(taskID, "/status"), userToken, `{"statut":"terminé"}`)

			kinds := a.notifier.kinds()
			if len(kinds) != 2 || kinds[0] != notifications.TaskAssigned || kinds[1] != notifications.TaskValidated {
				t.Fatalf("unexpected notifications %v", kinds)
			}

			if v := testutil.ToFloat64(a.prom.TaskTransitions.WithLabelValues("terminé", "validé", "validate")); v != 1 {
				t.Fatalf("expected one validate transition, got %v", v)
			}
			if v := testutil.ToFloat64(a.prom.TaskTransitions.WithLabelValues("à faire", "en cours", "owner")); v != 1 {
				t.Fatalf("expected one owner transition, got %v", v)
			}
		})
	}
}

func TestOwnerTransitions(t *testing.T) {
	a := newApp(t, memoryStores)
	admin := a.login(t, adminEmail, adminPassword)
	userID, userToken := a.createUser(t, admin, "jean@example.com", "0340000001")

	t.Run("todo straight to done", func(t *testing.T) {
		id := a.assign(t, admin, userID, "Direct")
		a.expect(t, http.StatusOK, http.MethodPut, userTaskPath(id, "/status"), userToken, `{"statut":"terminé"}`)
	})

	t.Run("status outside the owner targets", func(t *testing.T) {
		id := a.assign(t, admin, userID, "Raccourci")
		for _, body := range []string{`{"statut":"validé"}`, `{"statut":"à faire"}`, `{"statut":"fini"}`, ``} {
			resp := a.expect(t, http.StatusBadRequest, http.MethodPut, userTaskPath(id, "/status"), userToken, body)
			if resp["error"] != "Statut invalide" {
				t.Fatalf("body %q: unexpected error %v", body, resp)
			}
			allowed, _ := resp["statuts_autorisés"].([]any)
			if len(allowed) != 2 {
				t.Fatalf("body %q: expected allowed statuses, got %v", body, resp)
			}
		}
	})

	t.Run("backwards move is rejected and nothing changes", func(t *testing.T) {
		id := a.assign(t, admin, userID, "Retour")
		a.expect(t, http.StatusOK, http.MethodPut, userTaskPath(id, "/status"), userToken, `{"statut":"terminé"}`)

		resp := a.expect(t, http.StatusBadRequest, http.MethodPut, userTaskPath(id, "/status"), userToken, `{"statut":"en cours"}`)
		if resp["error"] != "Transition non autorisée" || resp["statut_actuel"] != "terminé" || resp["statut_demandé"] != "en cours" {
			t.Fatalf("unexpected body %v", resp)
		}

		got := a.expect(t, http.StatusOK, http.MethodGet, userTaskPath(id, ""), userToken, "")
		if got["statut"] != "terminé" {
			t.Fatalf("task changed after rejected transition: %v", got)
		}
	})

	t.Run("validate requires done", func(t *testing.T) {
		id := a.assign(t, admin, userID, "Trop tôt")
		resp := a.expect(t, http.StatusBadRequest, http.MethodPut, taskPath(id, "/validate"), admin, "")
		if resp["statut_actuel"] != "à faire" {
			t.Fatalf("unexpected body %v", resp)
		}
	})

	t.Run("note keeps the status", func(t *testing.T) {
		id := a.assign(t, admin, userID, "Note")
		resp := a.expect(t, http.StatusOK, http.MethodPut, userTaskPath(id, "/note"), userToken, `{"note_utilisateur":"fait à moitié"}`)
		task, _ := resp["task"].(map[string]any)
		if resp["message"] != "Note enregistrée avec succès" || task["note_utilisateur"] != "fait à moitié" || task["statut"] != "à faire" {
			t.Fatalf("unexpected body %v", resp)
		}
	})
}

func TestTaskOwnershipIsHidden(t *testing.T) {
	a := newApp(t, memoryStores)
	admin := a.login(t, adminEmail, adminPassword)
	aliceID, _ := a.createUser(t, admin, "alice@example.com", "0340000001")
	_, bobToken := a.createUser(t, admin, "bob@example.com", "0340000002")

	id := a.assign(t, admin, aliceID, "Privé")

	for _, c := range []struct{ method, path, body string }{
		{http.MethodGet, userTaskPath(id, ""), ""},
		{http.MethodPut, userTaskPath(id, "/status"), `{"statut":"en cours"}`},
		{http.MethodPut, userTaskPath(id, "/note"), `{"note_utilisateur":"x"}`},
		{http.MethodGet, "/api/debug/task/" + itoa(id), ""},
	} {
		resp := a.expect(t, http.StatusNotFound, c.method, c.path, bobToken, c.body)
		if resp["error"] != "Tâche non trouvée" {
			t.Fatalf("%s %s: unexpected body %v", c.method, c.path, resp)
		}
	}

	if list := a.expectList(t, http.MethodGet, "/api/user/tasks", bobToken); len(list) != 0 {
		t.Fatalf("bob should see no tasks, got %v", list)
	}

	// admins inspect any task through the debug route only
	a.expect(t, http.StatusOK, http.MethodGet, "/api/debug/task/"+itoa(id), admin, "")
	a.expect(t, http.StatusNotFound, http.MethodGet, userTaskPath(id, ""), admin, "")
}

func TestAdminTaskManagement(t *testing.T) {
	a := newApp(t, memoryStores)
	admin := a.login(t, adminEmail, adminPassword)
	userID, userToken := a.createUser(t, admin, "jean@example.com", "0340000001")

	t.Run("assign to an admin or unknown user", func(t *testing.T) {
		adminUser := a.expect(t, http.StatusOK, http.MethodGet, "/auth/me", admin, "")
		adminID := int64(adminUser["id"].(float64))

		for _, target := range []int64{adminID, 4242} {
			body := `{"user_id":` + itoa(target) + `,"titre":"x"}`
			resp := a.expect(t, http.StatusBadRequest, http.MethodPost, "/api/admin/tasks", admin, body)
			if resp["error"] != "Utilisateur invalide. Doit être un utilisateur standard (non-admin)" {
				t.Fatalf("target %d: unexpected body %v", target, resp)
			}
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := a.expect(t, http.StatusBadRequest, http.MethodPost, "/api/admin/tasks", admin, `{"titre":"x"}`)
		if resp["error"] != "L'utilisateur et le titre sont obligatoires" {
			t.Fatalf("unexpected body %v", resp)
		}
	})

	t.Run("patch keeps validation fields in sync", func(t *testing.T) {
		id := a.assign(t, admin, userID, "Patch")

		resp := a.expect(t, http.StatusOK, http.MethodPut, taskPath(id, ""), admin, `{"statut":"validé","titre":"Patch v2"}`)
		if resp["statut"] != "validé" || resp["valide_par_admin"] != true || resp["titre"] != "Patch v2" {
			t.Fatalf("unexpected body %v", resp)
		}

		resp = a.expect(t, http.StatusOK, http.MethodPut, taskPath(id, ""), admin, `{"statut":"en cours"}`)
		if resp["statut"] != "en cours" || resp["valide_par_admin"] != false || resp["date_validation"] != nil {
			t.Fatalf("unexpected body %v", resp)
		}

		a.expect(t, http.StatusBadRequest, http.MethodPut, taskPath(id, ""), admin, `{"statut":"annulé"}`)
		a.expect(t, http.StatusNotFound, http.MethodPut, taskPath(9999, ""), admin, `{"titre":"x"}`)
	})

	t.Run("patch with null description clears it", func(t *testing.T) {
		for name, stores := range backends {
			t.Run(name, func(t *testing.T) {
				b := newApp(t, stores)
				admin := b.login(t, adminEmail, adminPassword)
				userID, _ := b.createUser(t, admin, "desc@example.com", "0340000009")
				id := b.assign(t, admin, userID, "Description")

				resp := b.expect(t, http.StatusOK, http.MethodPut, taskPath(id, ""), admin, `{"description":"texte"}`)
				if resp["description"] != "texte" {
					t.Fatalf("unexpected body %v", resp)
				}

				resp = b.expect(t, http.StatusOK, http.MethodPut, taskPath(id, ""), admin, `{"titre":"Description v2"}`)
				if resp["description"] != "texte" {
					t.Fatalf("absent key should keep the description, got %v", resp)
				}

				resp = b.expect(t, http.StatusOK, http.MethodPut, taskPath(id, ""), admin, `{"description":null}`)
				if v, ok := resp["description"]; !ok || v != nil {
					t.Fatalf("expected description null, got %v", resp)
				}

				resp = b.expect(t, http.StatusOK, http.MethodGet, "/api/debug/task/"+itoa(id), admin, "")
				if resp["description"] != nil {
					t.Fatalf("cleared description was not persisted: %v", resp)
				}
			})
		}
	})

	t.Run("lists are newest first", func(t *testing.T) {
		first := a.assign(t, admin, userID, "Ancienne")
		second := a.assign(t, admin, userID, "Récente")

		all := a.expectList(t, http.MethodGet, "/api/admin/tasks", admin)
		if len(all) < 2 || int64(all[0]["id"].(float64)) != second || int64(all[1]["id"].(float64)) != first {
			t.Fatalf("unexpected order %v", all)
		}

		mine := a.expectList(t, http.MethodGet, "/api/user/tasks", userToken)
		byAdmin := a.expectList(t, http.MethodGet, "/api/admin/users/"+itoa(userID)+"/tasks", admin)
		if len(mine) != len(byAdmin) || len(mine) == 0 || mine[0]["id"] != byAdmin[0]["id"] {
			t.Fatalf("owner and admin views differ: %v vs %v", mine, byAdmin)
		}
	})

	t.Run("user task listing rejects admins", func(t *testing.T) {
		me := a.expect(t, http.StatusOK, http.MethodGet, "/auth/me", admin, "")
		adminID := int64(me["id"].(float64))

		for _, id := range []int64{adminID, 4242} {
			resp := a.expect(t, http.StatusBadRequest, http.MethodGet, "/api/admin/users/"+itoa(id)+"/tasks", admin, "")
			if resp["error"] != "Utilisateur invalide" {
				t.Fatalf("id %d: unexpected body %v", id, resp)
			}
		}
	})

	t.Run("user task listing rejects bad ids", func(t *testing.T) {
		resp := a.expect(t, http.StatusBadRequest, http.MethodGet, "/api/admin/users/abc/tasks", admin, "")
		if resp["code"] != "invalid_id" {
			t.Fatalf("unexpected body %v", resp)
		}
	})

	t.Run("plain users only", func(t *testing.T) {
		users := a.expectList(t, http.MethodGet, "/api/admin/users", admin)
		if len(users) != 1 || users[0]["email"] != "jean@example.com" {
			t.Fatalf("unexpected users %v", users)
		}
	})

	t.Run("delete", func(t *testing.T) {
		id := a.assign(t, admin, userID, "Jetable")
		resp := a.expect(t, http.StatusOK, http.MethodDelete, taskPath(id, ""), admin, "")
		if resp["message"] != "Tâche supprimée avec succès" {
			t.Fatalf("unexpected body %v", resp)
		}
		a.expect(t, http.StatusNotFound, http.MethodDelete, taskPath(id, ""), admin, "")
		a.expect(t, http.StatusNotFound, http.MethodGet, userTaskPath(id, ""), userToken, "")
	})

	t.Run("plain user is forbidden", func(t *testing.T) {
		id := a.assign(t, admin, userID, "Interdite")

		routes := []struct {
			method, path, body string
		}{
			{http.MethodGet, "/api/admin/tasks", ""},
			{http.MethodPost, "/api/admin/tasks", `{"user_id":` + itoa(userID) + `,"titre":"x"}`},
			{http.MethodPut, taskPath(id, ""), `{"titre":"x"}`},
			{http.MethodDelete, taskPath(id, ""), ""},
			{http.MethodPut, taskPath(id, "/validate"), ""},
			{http.MethodGet, "/api/admin/users", ""},
			{http.MethodGet, "/api/admin/users/" + itoa(userID) + "/tasks", ""},
			{http.MethodGet, "/auth/users", ""},
			{http.MethodPost, "/auth/admin/create-user", `{}`},
		}
		for _, rt := range routes {
			resp := a.expect(t, http.StatusForbidden, rt.method, rt.path, userToken, rt.body)
			if resp["error"] != "Accès non autorisé" {
				t.Fatalf("%s %s: unexpected body %v", rt.method, rt.path, resp)
			}
		}

		// nothing above reached a handler
		a.expect(t, http.StatusOK, http.MethodGet, "/api/user/tasks/"+itoa(id), userToken, "")
	})
}

package server

import (
	"net/http"
	"testing"
)

func TestAdminRoutesRequireAdmin(t *testing.T) {
	api := newTestAPI(t)
	_, alice, _ := api.community(t)

	api.expectError(t, http.MethodGet, "/api/admin/users", alice.Token, nil, http.StatusForbidden, "FORBIDDEN")
	api.expectError(t, http.MethodGet, "/api/admin/reports/activity", alice.Token, nil, http.StatusForbidden, "FORBIDDEN")
	api.expectError(t, http.MethodPost, "/api/announcements", alice.Token, map[string]string{"title": "t", "body": "b"}, http.StatusForbidden, "FORBIDDEN")
}

func TestAdminBanCancelsPendingSwapsAndBlocksAccess(t *testing.T) {
	api := newTestAPI(t)
	admin, alice, bob := api.community(t)
	created := api.createSwap(t, alice, bob, "guitar", "spanish")

	api.expectError(t, http.MethodPost, "/api/admin/users/"+admin.ID+"/ban", admin.Token, map[string]string{"reason": "oops"}, http.StatusBadRequest, "USER_SELF_BAN")

	var banned banResponse
	api.expect(t, http.MethodPost, "/api/admin/users/"+bob.ID+"/ban", admin.Token, map[string]string{"reason": "spam"}, http.StatusOK, &banned)
	if !banned.User.Banned || banned.User.BanReason != "spam" || banned.CancelledSwaps != 1 {
		t.Fatalf("ban response = %+v", banned)
	}

	var current swapView
	api.expect(t, http.MethodGet, "/api/swaps/"+created.ID, alice.Token, nil, http.StatusOK, &current)
	if current.Status != "cancelled" {
		t.Fatalf("swap status = %q, want cancelled", current.Status)
	}

	api.expectError(t, http.MethodGet, "/api/auth/me", bob.Token, nil, http.StatusForbidden, "USER_BANNED")
	api.expectError(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "bob@example.com", "password": "correct horse",
	}, http.StatusForbidden, "USER_BANNED")
	api.expectError(t, http.MethodGet, "/api/users/"+bob.ID, alice.Token, nil, http.StatusNotFound, "NOT_FOUND")
	api.expectError(t, http.MethodPost, "/api/swaps", alice.Token, map[string]string{
		"recipient_id": bob.ID, "offered_skill": "guitar", "wanted_skill": "spanish",
	}, http.StatusNotFound, "NOT_FOUND")

	var page listResponse[userView]
	api.expect(t, http.MethodGet, "/api/admin/users?banned=true", admin.Token, nil, http.StatusOK, &page)
	if len(page.Items) != 1 || page.Items[0].ID != bob.ID {
		t.Fatalf("banned users = %+v", page.Items)
	}
	api.expectError(t, http.MethodGet, "/api/admin/users?banned=maybe", admin.Token, nil, http.StatusBadRequest, "INVALID_ARGUMENT")

	var unbanned banResponse
	api.expect(t, http.MethodPost, "/api/admin/users/"+bob.ID+"/unban", admin.Token, nil, http.StatusOK, &unbanned)
	if unbanned.User.Banned || unbanned.User.BanReason != "" {
		t.Fatalf("unban response = %+v", unbanned)
	}
	api.expect(t, http.MethodGet, "/api/auth/me", bob.Token, nil, http.StatusOK, nil)
}

func TestAdminListUsersQuery(t *testing.T) {
	api := newTestAPI(t)
	admin, alice, _ := api.community(t)

	var page listResponse[userView]
	api.expect(t, http.MethodGet, "/api/admin/users?query=ALI", admin.Token, nil, http.StatusOK, &page)
	if len(page.Items) != 1 || page.Items[0].ID != alice.ID {
		t.Fatalf("query users = %+v", page.Items)
	}
	api.expect(t, http.MethodGet, "/api/admin/users?page_size=2", admin.Token, nil, http.StatusOK, &page)
	if len(page.Items) != 2 || page.NextPageToken == "" {
		t.Fatalf("first page = %+v", page)
	}
	var second listResponse[userView]
	api.expect(t, http.MethodGet, "/api/admin/users?page_size=2&page_token="+page.NextPageToken, admin.Token, nil, http.StatusOK, &second)
	if len(second.Items) != 1 || second.NextPageToken != "" {
		t.Fatalf("second page = %+v", second)
	}
}

func TestAdminRemoveSkill(t *testing.T) {
	api := newTestAPI(t)
	admin, alice, _ := api.community(t)

	var updated profileView
	api.expect(t, http.MethodDelete, "/api/admin/users/"+alice.ID+"/skills", admin.Token, map[string]string{
		"kind": "offered", "skill": "GUITAR",
	}, http.StatusOK, &updated)
	if len(updated.SkillsOffered) != 0 {
		t.Fatalf("skills offered = %v, want none", updated.SkillsOffered)
	}
	api.expectError(t, http.MethodDelete, "/api/admin/users/"+alice.ID+"/skills", admin.Token, map[string]string{
		"kind": "offered", "skill": "guitar",
	}, http.StatusNotFound, "NOT_FOUND")
	api.expectError(t, http.MethodDelete, "/api/admin/users/"+alice.ID+"/skills", admin.Token, map[string]string{
		"kind": "hobbies", "skill": "guitar",
	}, http.StatusBadRequest, "INVALID_ARGUMENT")
	api.expectError(t, http.MethodDelete, "/api/admin/users/missing/skills", admin.Token, map[string]string{
		"kind": "offered", "skill": "guitar",
	}, http.StatusNotFound, "NOT_FOUND")

	var own profileView
	api.expect(t, http.MethodGet, "/api/profile", alice.Token, nil, http.StatusOK, &own)
	if len(own.SkillsWanted) != 1 || own.SkillsWanted[0] != "Spanish" || own.Location != "Lisbon" {
		t.Fatalf("profile after removal = %+v, want other fields kept", own)
	}
}

func TestAnnouncementsAndActivityReport(t *testing.T) {
	api := newTestAPI(t)
	admin, alice, bob := api.community(t)
	api.acceptedSwap(t, alice, bob)

	api.expectError(t, http.MethodPost, "/api/announcements", admin.Token, map[string]string{"title": " ", "body": "b"}, http.StatusBadRequest, "INVALID_ARGUMENT")
	var created announcementView
	api.expect(t, http.MethodPost, "/api/announcements", admin.Token, map[string]string{
		"title": "Welcome", "body": "Swap nights start Friday.",
	}, http.StatusCreated, &created)
	if created.AuthorID != admin.ID {
		t.Fatalf("announcement = %+v", created)
	}

	var announcements listResponse[announcementView]
	api.expect(t, http.MethodGet, "/api/announcements", alice.Token, nil, http.StatusOK, &announcements)
	if len(announcements.Items) != 1 || announcements.Items[0].Title != "Welcome" {
		t.Fatalf("announcements = %+v", announcements.Items)
	}

	var report activityReportView
	api.expect(t, http.MethodGet, "/api/admin/reports/activity", admin.Token, nil, http.StatusOK, &report)
	if report.Users.Total != 3 || report.SwapsByStatus["accepted"] != 1 {
		t.Fatalf("report = %+v", report)
	}

	var swaps listResponse[swapView]
	api.expect(t, http.MethodGet, "/api/admin/swaps?status=accepted", admin.Token, nil, http.StatusOK, &swaps)
	if len(swaps.Items) != 1 {
		t.Fatalf("admin swaps = %+v", swaps.Items)
	}
}

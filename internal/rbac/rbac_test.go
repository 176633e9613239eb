package rbac_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/workspace-management/internal/rbac"
)

func TestRBAC(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RBAC Suite")
}

var _ = Describe("Role hierarchy", func() {
	Describe("Level", func() {
		It("orders guest < user < manager < admin", func() {
			guest, err := rbac.Level(rbac.RoleGuest)
			Expect(err).NotTo(HaveOccurred())
			user, err := rbac.Level(rbac.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			manager, err := rbac.Level(rbac.RoleManager)
			Expect(err).NotTo(HaveOccurred())
			admin, err := rbac.Level(rbac.RoleAdmin)
			Expect(err).NotTo(HaveOccurred())

			Expect(guest).To(BeNumerically("<", user))
			Expect(user).To(BeNumerically("<", manager))
			Expect(manager).To(BeNumerically("<", admin))
		})

		It("fails for an unknown role", func() {
			_, err := rbac.Level(rbac.Role("superuser"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ParseRole", func() {
		It("accepts every role in the hierarchy", func() {
			for _, r := range rbac.ValidRoles() {
				parsed, err := rbac.ParseRole(string(r))
				Expect(err).NotTo(HaveOccurred())
				Expect(parsed).To(Equal(r))
			}
		})

		It("rejects arbitrary strings", func() {
			_, err := rbac.ParseRole("root")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Visible", func() {
		manageronly := []rbac.Role{rbac.RoleManager, rbac.RoleAdmin}

		It("shows a manager+admin focus to managers and admins", func() {
			Expect(rbac.Visible(manageronly, rbac.RoleManager)).To(BeTrue())
			Expect(rbac.Visible(manageronly, rbac.RoleAdmin)).To(BeTrue())
		})

		It("hides a manager+admin focus from users and guests", func() {
			Expect(rbac.Visible(manageronly, rbac.RoleUser)).To(BeFalse())
			Expect(rbac.Visible(manageronly, rbac.RoleGuest)).To(BeFalse())
		})

		It("grants access above the minimum assigned role", func() {
			useronly := []rbac.Role{rbac.RoleUser}
			Expect(rbac.Visible(useronly, rbac.RoleManager)).To(BeTrue())
			Expect(rbac.Visible(useronly, rbac.RoleAdmin)).To(BeTrue())
			Expect(rbac.Visible(useronly, rbac.RoleGuest)).To(BeFalse())
		})

		It("ignores unknown roles in the assigned set", func() {
			mixed := []rbac.Role{rbac.Role("bogus"), rbac.RoleAdmin}
			Expect(rbac.Visible(mixed, rbac.RoleAdmin)).To(BeTrue())
			Expect(rbac.Visible(mixed, rbac.RoleManager)).To(BeFalse())
		})

		It("is never visible when the assigned set is empty", func() {
			Expect(rbac.Visible(nil, rbac.RoleAdmin)).To(BeFalse())
		})

		It("is never visible to an unknown caller role", func() {
			Expect(rbac.Visible([]rbac.Role{rbac.RoleGuest}, rbac.Role("bogus"))).To(BeFalse())
		})
	})

	Describe("CanMutate and CanCreateFocus", func() {
		It("only admins may mutate", func() {
			Expect(rbac.CanMutate(rbac.RoleAdmin)).To(BeTrue())
			Expect(rbac.CanMutate(rbac.RoleManager)).To(BeFalse())
			Expect(rbac.CanMutate(rbac.RoleUser)).To(BeFalse())
			Expect(rbac.CanMutate(rbac.RoleGuest)).To(BeFalse())
		})

		It("creation follows the mutation policy", func() {
			for _, r := range rbac.ValidRoles() {
				Expect(rbac.CanCreateFocus(r)).To(Equal(rbac.CanMutate(r)))
			}
		})
	})
})

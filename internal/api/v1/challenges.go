package v1

import (
	"github.com/gofiber/fiber/v2"
	recipes "github.com/mnuddindev/cookpulse/internal/models/recipes"
	user "github.com/mnuddindev/cookpulse/internal/models/user"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

// CreateChallenge handles POST /challenges. The route requires manage_challenges.
func CreateChallenge(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req recipes.CreateChallengeRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	ch, err := recipes.CreateChallenge(c.UserContext(), DB, uid, req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithMessage("created").
		WithData("challenge", ch).
		Send()
}

// ListChallenges handles GET /challenges. ?open=true keeps challenges open now.
func ListChallenges(c *fiber.Ctx) error {
	var list []recipes.Challenge
	var err error
	if c.QueryBool("open") {
		now := Now()
		list, err = recipes.ListChallenges(c.UserContext(), DB, &now)
	} else {
		list, err = recipes.ListChallenges(c.UserContext(), DB, nil)
	}
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("challenges", list).Send()
}

func GetChallenge(c *fiber.Ctx) error {
	id, err := utils.ParamInt64(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	ch, err := recipes.GetChallenge(c.UserContext(), DB, id)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("challenge", ch).Send()
}

func JoinChallenge(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	id, err := utils.ParamInt64(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	uc, err := recipes.JoinChallenge(c.UserContext(), DB, uid, id, Now())
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithMessage("joined").
		WithData("participation", uc).
		Send()
}

// CompleteChallenge awards the challenge points once and, when the user allows it,
// mails a congratulation after the award committed.
func CompleteChallenge(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	id, err := utils.ParamInt64(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	res, err := recipes.CompleteChallenge(c.UserContext(), DB, uid, id, Now())
	if err != nil {
		return utils.SendError(c, err)
	}
	if res.Status == recipes.StatusJustCompleted {
		user.InvalidateUser(c.UserContext(), Redis, uid)
		if Metrics != nil {
			Metrics.Completions.Inc()
		}
		mailCompletion(c, res)
	}

	return utils.Success(c).
		WithMessage(res.Status).
		WithData("participation", res.Participation).
		WithData("awarded", res.Awarded).
		Send()
}

func mailCompletion(c *fiber.Ctx, res *recipes.CompletionResult) {
	if !EmailCfg.Enabled() {
		return
	}
	uid := res.Participation.UserID
	np, err := user.GetNotificationPreferences(c.UserContext(), DB, uid)
	if err != nil || !np.EmailOnChallenge {
		return
	}
	u, err := user.GetUser(c.UserContext(), Redis, DB, uid)
	if err != nil {
		Logger.Warn(c.UserContext()).WithError(err).Logs("Failed to load user for challenge email")
		return
	}
	// delivery errors are logged by the mailer
	_ = utils.SendChallengeCompletedEmail(c.UserContext(), EmailCfg, u.Email, u.Username, res.Challenge.Title, res.Awarded, Logger)
}

// LikeChallenge toggles the caller's like on a challenge they joined.
func LikeChallenge(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	id, err := utils.ParamInt64(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	liked, err := recipes.ToggleChallengeLike(c.UserContext(), DB, uid, id)
	if err != nil {
		return utils.SendError(c, err)
	}
	msg := "unliked"
	if liked {
		msg = "liked"
	}
	return utils.Success(c).WithMessage(msg).WithData("liked", liked).Send()
}

func ChallengeStats(c *fiber.Ctx) error {
	id, err := utils.ParamInt64(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	s, err := recipes.GetChallengeStats(c.UserContext(), DB, id)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("stats", s).Send()
}

// Leaderboard handles GET /leaderboard?limit=.
func Leaderboard(c *fiber.Ctx) error {
	rows, err := recipes.Leaderboard(c.UserContext(), DB, c.QueryInt("limit", 10))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("leaderboard", rows).Send()
}

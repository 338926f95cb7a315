package world

// Lower-body animation states reported by clients.
const (
	AnimLowerEnd = 72

	AnimIdle            = 0
	AnimRunForward      = 5
	AnimRunBack         = 6
	AnimRunLeft         = 7
	AnimRunRight        = 8
	AnimJumpUp          = 9
	AnimJumpDown        = 10
	AnimWallLeft        = 15
	AnimWallLeftDown    = 16
	AnimWall            = 17
	AnimWallDownForward = 18
	AnimWallDown        = 19
	AnimWallRight       = 20
	AnimWallRightDown   = 21
	AnimTumbleForward   = 22
	AnimTumbleBack      = 23
	AnimTumbleRight     = 24
	AnimTumbleLeft      = 25
	AnimBind            = 26
	AnimJumpWallForward = 27
	AnimJumpWallBack    = 28
	AnimJumpWallLeft    = 29
	AnimJumpWallRight   = 30
	AnimGuardStart      = 42
	AnimGuardIdle       = 43
	AnimGuardBlock1     = 44
	AnimGuardBlock1Ret  = 45
	AnimGuardBlock2     = 46
	AnimGuardCancel     = 47
	AnimUppercut        = 54
)

func IsLowerState(a int) bool { return a >= 0 && a < AnimLowerEnd }

func IsWallRun(a int) bool {
	switch a {
	case AnimWallLeft, AnimWallLeftDown, AnimWall, AnimWallDownForward,
		AnimWallDown, AnimWallRight, AnimWallRightDown:
		return true
	}
	return false
}

func IsWallJump(a int) bool {
	switch a {
	case AnimJumpWallForward, AnimJumpWallBack, AnimJumpWallLeft, AnimJumpWallRight:
		return true
	}
	return false
}

// IsWallJump2 reports the second-stage wall kick states.
func IsWallJump2(a int) bool {
	switch a {
	case AnimWallLeftDown, AnimWallRightDown, AnimWallDownForward, AnimWallDown:
		return true
	}
	return false
}

func IsTumble(a int) bool {
	switch a {
	case AnimTumbleForward, AnimTumbleBack, AnimTumbleRight, AnimTumbleLeft:
		return true
	}
	return false
}

// WallSide maps a wall state to 0 left, 1 front, 2 right, -1 none.
func WallSide(a int) int {
	switch a {
	case AnimWallLeft, AnimJumpWallLeft, AnimWallLeftDown:
		return 0
	case AnimWall, AnimWallDownForward, AnimWallDown, AnimJumpWallForward, AnimJumpWallBack:
		return 1
	case AnimWallRight, AnimJumpWallRight, AnimWallRightDown:
		return 2
	}
	return -1
}

// IsGuardStance covers every guard state including cancel.
func IsGuardStance(a int) bool { return a >= AnimGuardIdle && a <= AnimGuardCancel }

// IsGuardRecoilable covers the guard states that can stagger an attacker.
func IsGuardRecoilable(a int) bool { return a >= AnimGuardIdle && a <= AnimGuardBlock2 }

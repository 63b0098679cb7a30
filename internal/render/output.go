// Package render provides terminal output formatting for non-interactive
// commands.
package render

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/tutoroo/tutoroo-cli/internal/studyapi"
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
}

// New creates a new renderer. Pretty output uses color and box drawing;
// plain output stays machine-friendly for piping.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// Plans formats the enrolled-plan list.
func (r *Renderer) Plans(plans []studyapi.PlanSummary) string {
	if len(plans) == 0 {
		return "등록된 학습 플랜이 없습니다"
	}

	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("학습 플랜\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}

	for _, p := range plans {
		r.formatPlan(&sb, p)
	}

	return sb.String()
}

func (r *Renderer) formatPlan(sb *strings.Builder, p studyapi.PlanSummary) {
	progress := fmt.Sprintf("%d/%d일차", p.CurrentDay, p.TotalDays)

	if r.pretty {
		fmt.Fprintf(sb, "%s %s  %s %s\n",
			color.HiBlackString(fmt.Sprintf("#%d", p.PlanID)),
			p.Goal,
			color.GreenString(progress),
			color.HiBlackString(strings.ToLower(p.Persona)))
	} else {
		fmt.Fprintf(sb, "%d\t%s\t%s\t%s\n", p.PlanID, p.Goal, progress, p.Persona)
	}
}

// Status formats a plan's remote study state.
func (r *Renderer) Status(st *studyapi.StatusResponse, completedToday bool) string {
	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("오늘의 학습\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
		fmt.Fprintf(&sb, "플랜      %s #%d\n", st.Goal, st.PlanID)
		fmt.Fprintf(&sb, "진행      %d일차\n", st.CurrentDay)
		if st.TodayTopic != "" {
			fmt.Fprintf(&sb, "오늘 주제  %s\n", st.TodayTopic)
		}
		if completedToday {
			fmt.Fprintf(&sb, "상태      %s\n", color.GreenString("✓ 오늘 학습 완료"))
		} else {
			fmt.Fprintf(&sb, "상태      %s\n", color.YellowString("○ 학습 전"))
		}
	} else {
		fmt.Fprintf(&sb, "plan=%d day=%d goal=%s completed=%t\n",
			st.PlanID, st.CurrentDay, st.Goal, completedToday)
	}

	return sb.String()
}

// NoActiveState formats the empty-state message for a plan with no
// recorded study yet.
func (r *Renderer) NoActiveState() string {
	if r.pretty {
		return color.YellowString("아직 학습 기록이 없습니다. `tutoroo study`로 시작해보세요.")
	}
	return "no active study state"
}

// ReviewSaved formats the review download confirmation.
func (r *Renderer) ReviewSaved(path string, size int) string {
	if r.pretty {
		return fmt.Sprintf("%s %s (%d bytes)", color.GreenString("✓ 저장됨"), path, size)
	}
	return path
}

// PlanDetail formats one plan's dashboard view.
func (r *Renderer) PlanDetail(p *studyapi.PlanSummary) string {
	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("플랜 상세\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
		fmt.Fprintf(&sb, "목표      %s\n", p.Goal)
		fmt.Fprintf(&sb, "진행      %s\n", color.GreenString("%d/%d일차", p.CurrentDay, p.TotalDays))
		fmt.Fprintf(&sb, "선생님    %s\n", strings.ToLower(p.Persona))
	} else {
		fmt.Fprintf(&sb, "plan=%d goal=%s day=%d/%d persona=%s\n",
			p.PlanID, p.Goal, p.CurrentDay, p.TotalDays, p.Persona)
	}

	return sb.String()
}

// Calendar formats the month's studied days.
func (r *Renderer) Calendar(cal *studyapi.CalendarResponse) string {
	if len(cal.Days) == 0 {
		return fmt.Sprintf("%d년 %d월에는 학습 기록이 없습니다", cal.Year, cal.Month)
	}

	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("%d년 %d월 학습 캘린더\n", cal.Year, cal.Month))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}

	for _, d := range cal.Days {
		if r.pretty {
			mark := color.GreenString("✓")
			if !d.IsCompleted {
				mark = color.YellowString("○")
			}
			fmt.Fprintf(&sb, "%s %s  %s  %s  %s\n",
				mark, d.Date,
				color.HiBlackString("%d일차", d.DayCount),
				color.GreenString("%d점", d.TestScore),
				d.DailySummary)
		} else {
			fmt.Fprintf(&sb, "%s\t%d\t%d\t%t\t%s\n",
				d.Date, d.DayCount, d.TestScore, d.IsCompleted, d.DailySummary)
		}
	}

	return sb.String()
}

// PlanCreated formats the enrollment confirmation.
func (r *Renderer) PlanCreated(p *studyapi.PlanSummary) string {
	if r.pretty {
		return fmt.Sprintf("%s #%d %s (%d일 과정)",
			color.GreenString("✓ 플랜 등록됨"), p.PlanID, p.Goal, p.TotalDays)
	}
	return fmt.Sprintf("%d", p.PlanID)
}

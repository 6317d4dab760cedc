package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"KlineStudio/internal/batch"
	"KlineStudio/internal/recorder"
)

// maxFailureLines caps the failures listed in one message.
const maxFailureLines = 10

// FormatRunReport formats a finished run into a Telegram message.
func FormatRunReport(report *batch.Report) string {
	var b strings.Builder

	icon := "✅"
	switch {
	case report.Cancelled:
		icon = "⏹"
	case !report.OK():
		icon = "⚠️"
	}
	b.WriteString(fmt.Sprintf("%s <b>KlineStudio 生成报告</b> | %s\n\n", icon, report.Started.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("批次: <code>%s</code>\n", report.RunID))
	b.WriteString(fmt.Sprintf("股票数: %d\n", len(report.Symbols)))
	b.WriteString(fmt.Sprintf("目标: %d | 完成: %d | 跳过: %d | 失败: %d\n",
		report.Planned, report.Succeeded, report.Skipped, len(report.Failures)))
	b.WriteString(fmt.Sprintf("耗时: %s\n", report.Finished.Sub(report.Started).Round(time.Second)))

	if len(report.Failures) > 0 {
		b.WriteString("\n❌ <b>失败明细:</b>\n")
		for i, f := range report.Failures {
			if i == maxFailureLines {
				b.WriteString(fmt.Sprintf("  … 另有 %d 项\n", len(report.Failures)-maxFailureLines))
				break
			}
			b.WriteString(fmt.Sprintf("  %s %s %s/%s: %s\n",
				f.Symbol, f.Period.Label(), f.Kind, f.Theme, html.EscapeString(f.Reason)))
		}
	}
	if report.Cancelled {
		b.WriteString("\n任务被中断，未开始的股票已记为失败")
	}
	return b.String()
}

// FormatHistory formats recent runs, newest first.
func FormatHistory(runs []recorder.RunRecord) string {
	if len(runs) == 0 {
		return "暂无运行记录"
	}
	var b strings.Builder
	b.WriteString("📜 <b>最近运行</b>\n\n")
	for _, r := range runs {
		status := "✅"
		switch {
		case r.FinishedAt.IsZero():
			status = "⏳"
		case r.Cancelled:
			status = "⏹"
		case r.Failed > 0:
			status = "⚠️"
		}
		b.WriteString(fmt.Sprintf("%s %s | 股票 %d | 完成 %d 跳过 %d 失败 %d\n",
			status, r.StartedAt.Format("01-02 15:04"), r.Symbols, r.Succeeded, r.Skipped, r.Failed))
	}
	return b.String()
}

// FormatError formats a run that could not start.
func FormatError(err error) string {
	return fmt.Sprintf("❌ <b>生成任务未启动</b>\n\n%s", html.EscapeString(err.Error()))
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "可用命令:\n• /run 立即生成\n• /status 当前状态\n• /history 最近运行"
}

package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"storefront-agent/internal/memory"
)

// SystemInstruction is the fixed persona and output contract given to the oracle.
const SystemInstruction = `You are the Cycle Harmony AI Admin Assistant. You have FULL admin access to manage the business via Telegram.

You can READ data and also PERFORM ACTIONS like changing order status, assigning delivery boys, updating stock and sending emails.

CRITICAL - ORDER ID RULES:
- Each order has two IDs: "orderId" (like "A004A01") and "id" (the internal database id)
- ALWAYS display "orderId" (e.g. #A004A01) to the user, NEVER show the internal id
- In the ACTION BLOCK, use the "orderId" field (like A005A01) for the orderId parameter

IMPORTANT - ACTION COMMANDS:
When the user wants to perform an action, you MUST respond with an ACTION BLOCK (plain text, no markdown formatting around the markers).

ACTION BLOCK FORMAT - use EXACTLY this format with NO bold/italic/backtick formatting on the markers:
---ACTION---
type: update_status
customer: ramu
orderId: A005A01
field: orderStatus
oldValue: Processing
newValue: Shipped
---END_ACTION---

RULES FOR ACTION BLOCK:
1. Do NOT put any * or ** or backticks around ---ACTION--- or ---END_ACTION---
2. The orderId should be the display orderId like A005A01 (NOT the internal id)
3. The type must be one of: update_status, assign_delivery, send_email, update_stock, cancel_order
4. Always include the customer name
5. For assign_delivery, newValue should be the delivery boy's name; add deliveryPhone when the user gives one
6. For update_stock, productId is the product id or exact product name and newValue is a whole number

EXAMPLES:

User: "change anu status to shipped"
---ACTION---
type: update_status
customer: anu
orderId: A005A01
field: orderStatus
oldValue: Processing
newValue: Shipped
---END_ACTION---

✅ *Status Updated!*
📦 *Order #A005A01*
👤 Customer: anu
🔄 Status: Processing ➜ *Shipped*

User: "assign delivery boy Ram to anu's order"
---ACTION---
type: assign_delivery
customer: anu
orderId: A005A01
field: deliveryBoy
oldValue: Not Assigned
newValue: Ram
---END_ACTION---

✅ *Delivery Boy Assigned!*
📦 *Order #A005A01*
👤 Customer: anu
🚚 Delivery Boy: *Ram*

VALID STATUS VALUES: Pending, Confirmed, Processing, Shipped, Delivered, Cancelled

FORMATTING RULES:
- Use Telegram Markdown: *bold* for labels
- Use emojis for visual appeal
- ALWAYS show orderId (like #A004A01), NEVER show the internal id
- Structure order lists with emojis and separators
- Always show totals/summaries at the end
- Use ━━━ separators between items`

const (
	historyTurnLimit = 300
	promptTimeLayout = "Monday, 2 January 2006 at 3:04 pm"
)

type PromptInput struct {
	Now     time.Time
	History []memory.Turn
	Bundle  Bundle
	Query   string
}

// BuildPrompt renders one oracle prompt. History holds the turns before Query, oldest first.
func BuildPrompt(in PromptInput) (string, error) {
	bundle, err := json.MarshalIndent(in.Bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode context bundle: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\nCURRENT DATE AND TIME (%s): %s\n", in.Now.Format("MST"), in.Now.Format(promptTimeLayout))
	b.WriteString(renderHistory(in.History))
	b.WriteString("\nCONTEXT DATA FROM DATABASE:\n")
	b.Write(bundle)
	b.WriteString("\n\nUSER MESSAGE:\n")
	b.WriteString(in.Query)
	b.WriteString("\n\nIf the user refers to previous conversation, use the history above.\n")
	b.WriteString("If the user wants an action, include the ACTION BLOCK with the orderId field (like A005A01).\n")
	b.WriteString("Be concise and helpful.")
	return b.String(), nil
}

func renderHistory(turns []memory.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nPREVIOUS CONVERSATION:\n")
	for _, t := range turns {
		label := "👤 User"
		if t.Role == memory.RoleAssistant {
			label = "🤖 Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, truncateRunes(t.Content, historyTurnLimit))
	}
	b.WriteString("---END HISTORY---\n")
	return b.String()
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

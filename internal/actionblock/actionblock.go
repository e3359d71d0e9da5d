// Package actionblock extracts the ---ACTION--- key/value block an oracle reply may carry.
package actionblock

import (
	"regexp"
	"strings"
)

const (
	KeyType          = "type"
	KeyCustomer      = "customer"
	KeyOrderID       = "orderId"
	KeyField         = "field"
	KeyOldValue      = "oldValue"
	KeyNewValue      = "newValue"
	KeyProductID     = "productId"
	KeyDeliveryPhone = "deliveryPhone"
)

// Descriptor is the flat key/value mapping parsed from one action block.
type Descriptor map[string]string

func (d Descriptor) Type() string          { return d[KeyType] }
func (d Descriptor) Customer() string      { return d[KeyCustomer] }
func (d Descriptor) OrderID() string       { return d[KeyOrderID] }
func (d Descriptor) Field() string         { return d[KeyField] }
func (d Descriptor) OldValue() string      { return d[KeyOldValue] }
func (d Descriptor) NewValue() string      { return d[KeyNewValue] }
func (d Descriptor) ProductID() string     { return d[KeyProductID] }
func (d Descriptor) DeliveryPhone() string { return d[KeyDeliveryPhone] }

// Lookup is the identifier used to resolve the target order: orderId, else customer.
func (d Descriptor) Lookup() string {
	if id := d.OrderID(); id != "" {
		return id
	}
	return d.Customer()
}

var blockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)---ACTION---(.*?)---END_ACTION---`),
	regexp.MustCompile(`(?s)---ACTION---(.*?)---END ACTION---`),
}

var emphasis = strings.NewReplacer("*", "", "`", "", "\r\n", "\n", "\r", "\n")

// Parse returns the descriptor in reply, or false when there is no block or the block has no pairs.
func Parse(reply string) (Descriptor, bool) {
	cleaned := emphasis.Replace(reply)

	var block string
	found := false
	for _, p := range blockPatterns {
		if m := p.FindStringSubmatch(cleaned); m != nil {
			block, found = m[1], true
			break
		}
	}
	if !found {
		return nil, false
	}

	d := Descriptor{}
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		d[key] = value
	}
	if len(d) == 0 {
		return nil, false
	}
	return d, true
}

var stripPattern = regexp.MustCompile("(?s)[*`]*---[*`]*ACTION[*`]*---[*`]*.*?[*`]*---[*`]*END[_ ]ACTION[*`]*---[*`]*\r?\n?")

// Strip removes every action block from reply, including emphasis wrapped around its markers.
func Strip(reply string) string {
	return strings.TrimSpace(stripPattern.ReplaceAllString(reply, ""))
}

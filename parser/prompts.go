package parser

// extractUserPrompt is the prompt template for AI transaction extraction.
// The %s placeholders are replaced with subject, sender, date and body.
const extractUserPrompt = `You are a financial notification parser. Extract every transaction from this email.

Rules for each transaction:

1. **amount**: The transaction amount as a positive number.
   - Strip currency symbols and Indian digit grouping ("Rs. 1,50,000.00" is 150000)
   - Never return zero or negative amounts

2. **direction**: Either "debit" or "credit".
   - "credit" only when money arrives in the account (credited, received, refund, cashback)
   - When unsure, use "debit"

3. **type**: Choose exactly one:
   - "upi" - UPI or VPA payment
   - "credit_card" - credit card spend
   - "bank_transfer" - NEFT, IMPS, RTGS or other account transfer
   - "sip" - mutual fund SIP or redemption
   - "loan" - loan EMI or disbursal

4. **merchant**: The counterparty name, cleaned of gateway prefixes and codes.

5. **account**: Last digits of the account or card if present, formatted like "**1234". Omit if absent.

6. **bank**: Issuing bank name if identifiable. Omit if absent.

7. **reference**: Transaction reference, UTR or folio number if present.

8. **description**: One short line describing the transaction. Omit if nothing useful.

9. **date**: Transaction date as YYYY-MM-DD if stated in the email. Omit to use the email date.

10. **confidence**: Your confidence in this extraction from 0.0 to 1.0.

If the email contains no transaction (OTP, promotion, statement summary), return {"transactions": []}.

Email:
Subject: %s
From: %s
Date: %s
---
%s
---

Respond with JSON only:
{"transactions":[{"amount":0,"direction":"...","type":"...","merchant":"...","account":"...","bank":"...","reference":"...","description":"...","date":"...","confidence":0.0}]}`

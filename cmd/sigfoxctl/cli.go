package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/sigfoxserver/sigfox-server/pkg/sigfox"
)

// newFlagSet builds a flag.FlagSet with flag.ExitOnError: on a parse error
// it prints the error and the set's usage text and exits with status 2.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return fs
}

// parseHexKey parses exactly 16 hex-encoded bytes into a sigfox.Key.
func parseHexKey(s string) sigfox.Key {
	var key sigfox.Key
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(key) {
		fmt.Fprintln(os.Stderr, "Error: -k must be exactly 32 hex characters (128 bits)")
		os.Exit(1)
	}
	copy(key[:], b)
	return key
}

// parseHexUint32 parses a hex string into up to a 32-bit value.
func parseHexUint32(optname, s string) uint32 {
	var v uint32
	_, err := fmt.Sscanf(s, "%x", &v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid hexadecimal value for -%s: %s\n", optname, s)
		os.Exit(1)
	}
	return v
}

func parseHexBytes(optname, s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid hexadecimal value for -%s: %s\n", optname, s)
		os.Exit(1)
	}
	return b
}

func runUplinkEncode(args []string) {
	fs := newFlagSet("ulencode")
	seqnum := fs.String("s", "", "Sequence number (hex, required)")
	devid := fs.String("i", "", "Device ID (hex, required)")
	keyStr := fs.String("k", "", "Secret key (hex, required)")
	payload := fs.String("p", "", "Payload (hex, required)")
	replicas := fs.Int("r", 1, "Emit replicas (0 = no, 1 = yes)")
	singlebit := fs.Bool("e", false, "Single-bit frame type")
	requestDownlink := fs.Bool("d", false, "Set downlink-request flag")
	fs.Parse(args)

	if *seqnum == "" || *devid == "" || *keyStr == "" || *payload == "" {
		fmt.Println("Missing argument(s). Please provide sequence number,")
		fmt.Println("device ID, secret key and payload.")
		os.Exit(1)
	}

	payloadBytes := parseHexBytes("p", *payload)

	plain := sigfox.UplinkPlain{
		Singlebit:       *singlebit,
		RequestDownlink: *requestDownlink,
		Replicas:        *replicas != 0,
	}

	if *singlebit {
		if len(payloadBytes) != 1 || (payloadBytes[0] != 0x00 && payloadBytes[0] != 0x10) {
			fmt.Println("Payload must be either '1' or '0' when using single-bit payload type.")
			os.Exit(1)
		}
		plain.Payload[0] = payloadBytes[0]
	} else {
		if len(payloadBytes) == 0 || len(payloadBytes) > 12 {
			fmt.Println("Uplink payload too long for single Sigfox uplink frame (max. 12 bytes)")
			os.Exit(1)
		}
		copy(plain.Payload[:], payloadBytes)
		plain.PayloadLen = uint8(len(payloadBytes))
	}

	common := sigfox.CommonInfo{
		Seqnum: uint16(parseHexUint32("s", *seqnum)),
		Devid:  parseHexUint32("i", *devid),
		Key:    parseHexKey(*keyStr),
	}

	encoded, err := sigfox.EncodeUplink(plain, common)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}

	nreplicas := 1
	if plain.Replicas {
		nreplicas = 3
	}
	for i := 0; i < nreplicas; i++ {
		fmt.Printf("%s%s\n", hex.EncodeToString(sigfox.SFXULPreamble[:]), hex.EncodeToString(encoded.Frame[i]))
	}
}

func runUplinkDecode(args []string) {
	fs := newFlagSet("uldecode")
	keyStr := fs.String("k", "", "Secret key (hex, optional)")
	frameStr := fs.String("f", "", "Encoded uplink frame (hex, required)")
	fs.Parse(args)

	if *frameStr == "" {
		fmt.Println("Missing argument: Please provide uplink frame.")
		fmt.Println("Device's secret key can be provided optionally if")
		fmt.Println("consistency checks should be performed.")
		os.Exit(1)
	}

	frame := parseHexBytes("f", *frameStr)

	var encoded sigfox.UplinkEncoded
	encoded.Frame[0] = frame
	encoded.FramelenNibbles = uint8(len(frame)*2 - 1)

	var key sigfox.Key
	keyPresent := *keyStr != ""
	if keyPresent {
		key = parseHexKey(*keyStr)
	}

	plain, common, err := sigfox.DecodeUplink(encoded, key, keyPresent)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Downlink request: %s\n", yesno(plain.RequestDownlink))
	fmt.Printf("Sequence Number : %03x\n", common.Seqnum)
	fmt.Printf("Device ID       : %08x\n", common.Devid)
	fmt.Print("Payload         : ")
	if plain.Singlebit {
		bit := '0'
		if plain.Payload[0] != 0 {
			bit = '1'
		}
		fmt.Printf("%c (single bit-payload)\n", bit)
	} else {
		fmt.Println(hex.EncodeToString(plain.Payload[:plain.PayloadLen]))
	}
	fmt.Println("CRC             : OK")
	if !keyPresent {
		fmt.Println("MAC             : didn't perform check, provide secret key to check MAC")
	} else {
		fmt.Println("MAC             : OK")
	}
}

func runDownlinkEncode(args []string) {
	fs := newFlagSet("dlencode")
	seqnum := fs.String("s", "", "Sequence number (hex, required)")
	devid := fs.String("i", "", "Device ID (hex, required)")
	keyStr := fs.String("k", "", "Secret key (hex, required)")
	payload := fs.String("p", "", "Payload (hex, required, 8 bytes)")
	fs.Parse(args)

	if *seqnum == "" || *devid == "" || *keyStr == "" || *payload == "" {
		fmt.Println("Missing argument(s). Please provide sequence number,")
		fmt.Println("device ID, secret key and downlink payload.")
		os.Exit(1)
	}

	payloadBytes := parseHexBytes("p", *payload)
	if len(payloadBytes) != sigfox.SFXDLPayloadlen {
		fmt.Printf("Downlink payload must be exactly %d bytes.\n", sigfox.SFXDLPayloadlen)
		os.Exit(1)
	}

	var plain sigfox.DownlinkPlain
	copy(plain.Payload[:], payloadBytes)

	common := sigfox.CommonInfo{
		Seqnum: uint16(parseHexUint32("s", *seqnum)),
		Devid:  parseHexUint32("i", *devid),
		Key:    parseHexKey(*keyStr),
	}

	encoded, err := sigfox.EncodeDownlink(plain, common, nil)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s%s\n", hex.EncodeToString(sigfox.SFXDLPreamble[:]), hex.EncodeToString(encoded.Frame[:]))
}

func runDownlinkDecode(args []string) {
	fs := newFlagSet("dldecode")
	seqnum := fs.String("s", "", "Sequence number (hex)")
	devid := fs.String("i", "", "Device ID (hex)")
	keyStr := fs.String("k", "", "Secret key (hex)")
	frameStr := fs.String("f", "", "Encoded downlink frame (hex, required, 15 bytes)")
	bruteforce1 := fs.Bool("b", false, "Brute-force mode 1: try all uplink sequence numbers")
	bruteforce2 := fs.Bool("c", false, "Brute-force mode 2: try all scrambler LFSR seeds")
	fs.Parse(args)

	if *frameStr == "" {
		fmt.Println("Missing argument: please provide downlink frame.")
		os.Exit(1)
	}
	frameBytes := parseHexBytes("f", *frameStr)
	if len(frameBytes) != sigfox.SFXDLFramelen {
		fmt.Printf("Downlink frame must be exactly %d bytes.\n", sigfox.SFXDLFramelen)
		os.Exit(1)
	}
	var encoded sigfox.DownlinkEncoded
	copy(encoded.Frame[:], frameBytes)

	switch {
	case *bruteforce1:
		if *devid == "" || *keyStr == "" {
			fmt.Println("Missing argument(s). Please provide device ID and secret key.")
			os.Exit(1)
		}
		key := parseHexKey(*keyStr)
		plain, foundSeqnum, err := sigfox.BruteForceSeqnum(encoded, parseHexUint32("i", *devid), key, 0xFFF, nil)
		if err != nil {
			fmt.Println("Error: Brute-force failed, couldn't find matching sequence number")
			os.Exit(1)
		}
		fmt.Printf("Found possible uplink sequence number: 0x%03x\n", foundSeqnum)
		fmt.Println(hex.EncodeToString(plain.Payload[:]))

	case *bruteforce2:
		found := false
		for seed := uint16(0); seed < 0x1FF; seed++ {
			common := sigfox.CommonInfo{Devid: 1, Seqnum: seed}
			plain, err := sigfox.DecodeDownlink(encoded, common, nil)
			if err != nil {
				continue
			}
			if plain.CRCOk {
				found = true
				fmt.Printf("Found LFSR seed with matching CRC: 0x%03x, corresponding payload: %s", seed, hex.EncodeToString(plain.Payload[:]))
				if plain.FECCorrected {
					fmt.Print(" - FEC was applied, probably incorrect")
				} else {
					fmt.Print(" - no FEC was applied")
				}
				fmt.Println()
			}
		}
		if !found {
			fmt.Println("Error: Brute-force failed, couldn't find matching LFSR seed")
		}

	default:
		if *seqnum == "" || *devid == "" || *keyStr == "" {
			fmt.Println("Missing argument(s). Please provide sequence number, device ID")
			fmt.Println("and secret key (unless using a brute-force mode).")
			os.Exit(1)
		}
		common := sigfox.CommonInfo{
			Seqnum: uint16(parseHexUint32("s", *seqnum)),
			Devid:  parseHexUint32("i", *devid),
			Key:    parseHexKey(*keyStr),
		}
		plain, err := sigfox.DecodeDownlink(encoded, common, nil)
		if err != nil {
			fmt.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		if !plain.CRCOk {
			fmt.Println("Warning: CRC8 check failed, output may be wrong!")
		}
		if !plain.MACOk {
			fmt.Println("Warning: Authentication code check failed!")
		}
		fmt.Println(hex.EncodeToString(plain.Payload[:]))
	}
}

func yesno(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
